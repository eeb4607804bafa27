package models

import "time"

// Payment statuses. Only paid payments count toward the paid total.
const (
	PaymentStatusPaid    = "paid"
	PaymentStatusPending = "pending"
	PaymentStatusFailed  = "failed"
)

// FeeStructure is one fee head applicable to every student of a class.
// Amounts are whole currency units.
type FeeStructure struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ClassName string    `gorm:"size:64;not null;index" json:"class_name"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	Amount    int64     `gorm:"not null" json:"amount"`
	DueDate   string    `gorm:"size:10" json:"due_date"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FeePayment is immutable once recorded.
type FeePayment struct {
	ID            string    `gorm:"primaryKey;size:64" json:"id"`
	StudentID     string    `gorm:"size:64;not null;index" json:"student_id"`
	RollNumber    string    `gorm:"size:64;not null;index" json:"roll_number"`
	StudentName   string    `gorm:"size:255" json:"student_name"`
	ClassName     string    `gorm:"size:64;not null" json:"class_name"`
	Amount        int64     `gorm:"not null" json:"amount"`
	Method        string    `gorm:"size:32" json:"method"`
	Status        string    `gorm:"size:16;not null" json:"status"`
	ReceiptNumber string    `gorm:"size:64;uniqueIndex;not null" json:"receipt_number"`
	Remarks       string    `gorm:"type:text" json:"remarks"`
	RecordedBy    string    `gorm:"size:64" json:"recorded_by"`
	PaidAt        time.Time `gorm:"not null;index" json:"paid_at"`
	CreatedAt     time.Time `json:"created_at"`
}
