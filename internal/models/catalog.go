package models

type Category struct {
	ID   int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"type:varchar(256);not null;index" json:"name"`
	Slug string `gorm:"type:varchar(50);uniqueIndex;not null" json:"slug"`
}

func (Category) TableName() string {
	return "categories"
}

type Genre struct {
	ID   int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"type:varchar(256);not null;index" json:"name"`
	Slug string `gorm:"type:varchar(50);uniqueIndex;not null" json:"slug"`
}

func (Genre) TableName() string {
	return "genres"
}

type Title struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string    `gorm:"type:varchar(256);not null;index" json:"name"`
	Year        int       `gorm:"not null;index" json:"year"`
	Description *string   `gorm:"type:text" json:"description"`
	CategoryID  *int64    `gorm:"index" json:"category_id"`
	Category    *Category `gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL" json:"category"`
	Genres      []Genre   `gorm:"many2many:title_genres;constraint:OnDelete:CASCADE" json:"genre"`

	// Rating is the mean review score, selected at read time and never stored.
	Rating *float64 `gorm:"->;-:migration" json:"rating"`
}

func (Title) TableName() string {
	return "titles"
}
