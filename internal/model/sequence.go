package model

// OrderNumberSequence is the durable per-(hotel, year) counter backing order
// number generation. Rows are only ever read and incremented inside a
// serializing transaction.
type OrderNumberSequence struct {
	HotelID   int64 `gorm:"primaryKey;autoIncrement:false"`
	Year      int   `gorm:"primaryKey;autoIncrement:false"`
	LastValue int64 `gorm:"not null"`
}
