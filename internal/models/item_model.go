package models

import "time"

const (
	ItemStatusAvailable = "Available"
	ItemStatusReserved  = "Reserved"
	ItemStatusRented    = "Rented"
)

// ItemConditions lists the accepted values of Item.ItemCondition.
var ItemConditions = []string{"Brand New", "Like New", "Good", "Fair", "Poor"}

// ItemOwner is the denormalized owner reference stored on a listing.
type ItemOwner struct {
	ID       string `json:"id" firestore:"id"`
	Fullname string `json:"fullname" firestore:"fullname"`
}

// Item is a rentable listing.
type Item struct {
	ID            string     `json:"id" firestore:"-"`
	ItemName      string     `json:"itemName" firestore:"itemName"`
	ItemDesc      string     `json:"itemDesc" firestore:"itemDesc"`
	ItemPrice     float64    `json:"itemPrice" firestore:"itemPrice"` // per day
	ItemCondition string     `json:"itemCondition" firestore:"itemCondition"`
	ItemLocation  string     `json:"itemLocation" firestore:"itemLocation"`
	Category      string     `json:"category,omitempty" firestore:"category,omitempty"`
	Images        []string   `json:"images" firestore:"images"`
	Owner         ItemOwner  `json:"owner" firestore:"owner"`
	ItemStatus    string     `json:"itemStatus" firestore:"itemStatus"`
	ReservedBy    string     `json:"reservedBy,omitempty" firestore:"reservedBy,omitempty"`
	ReservedAt    *time.Time `json:"reservedAt,omitempty" firestore:"reservedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt" firestore:"createdAt,serverTimestamp"`
}

// ItemSearch holds the filters of a listing search.
type ItemSearch struct {
	Category   string
	Keyword    string
	Limit      int
	StartAfter string
}

// ItemPrediction is one classification candidate for an item photo.
type ItemPrediction struct {
	PredictedItem string  `json:"Predicted Item"`
	Category      string  `json:"Category"`
	Confidence    float64 `json:"Confidence"`
}
