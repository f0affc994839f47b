package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Product is an entry of the product knowledge base. The blog generator puts
// its characteristics into the prompt so the article describes the product
// with facts from the catalog only. The catalog is maintained outside the
// service.
type Product struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name            string             `bson:"name" json:"name"`
	Characteristics string             `bson:"characteristics" json:"characteristics"`
}
