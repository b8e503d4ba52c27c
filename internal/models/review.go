package models

import (
	"time"

	"github.com/google/uuid"
)

type Review struct {
	ID       int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Text     string    `gorm:"type:text;not null" json:"text"`
	AuthorID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_review_author_title" json:"-"`
	TitleID  int64     `gorm:"not null;index;uniqueIndex:idx_review_author_title" json:"-"`
	Score    int       `gorm:"not null;check:chk_reviews_score,score >= 1 AND score <= 10" json:"score"`
	PubDate  time.Time `gorm:"not null;index" json:"pub_date"`

	// Foreign Key Relationships
	Author User  `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"-"`
	Title  Title `gorm:"foreignKey:TitleID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Review) TableName() string {
	return "reviews"
}

type Comment struct {
	ID       int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Text     string    `gorm:"type:text;not null" json:"text"`
	AuthorID uuid.UUID `gorm:"type:uuid;not null;index" json:"-"`
	ReviewID int64     `gorm:"not null;index" json:"-"`
	PubDate  time.Time `gorm:"not null;index" json:"pub_date"`

	Author User   `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"-"`
	Review Review `gorm:"foreignKey:ReviewID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Comment) TableName() string {
	return "comments"
}
