package models

import (
	"fmt"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// MediaType classifies an image attached to a product.
type MediaType string

const (
	MediaCover     MediaType = "cover"
	MediaGallery   MediaType = "gallery"
	MediaSmartIcon MediaType = "smartIcon"
)

// Valid reports whether t is a known media type.
func (t MediaType) Valid() bool {
	switch t {
	case MediaCover, MediaGallery, MediaSmartIcon:
		return true
	}
	return false
}

// Folder returns the storage folder used for uploads of this type.
func (t MediaType) Folder() string {
	switch t {
	case MediaSmartIcon:
		return "icons"
	default:
		return string(t)
	}
}

// Product is a catalog item belonging to a category.
type Product struct {
	BaseModel
	CategoryID  uint                        `gorm:"index;not null" json:"categoryId"`
	Name        string                      `gorm:"size:100;not null" json:"name"`
	SubName     string                      `gorm:"size:100" json:"subName"`
	Code        string                      `gorm:"size:100;index" json:"code"`
	CoverDesc   string                      `gorm:"size:300" json:"coverDesc"`
	MainDesc    string                      `gorm:"type:text" json:"mainDesc"`
	KeyFeatures datatypes.JSONSlice[string] `json:"keyFeatures"`
	Images      []ProductMedia              `gorm:"constraint:OnDelete:CASCADE" json:"images"`
	Category    *Category                   `json:"category,omitempty"`
}

// BeforeSave trims free-text fields and drops blank key features.
func (p *Product) BeforeSave(tx *gorm.DB) error {
	p.Name = strings.TrimSpace(p.Name)
	p.SubName = strings.TrimSpace(p.SubName)
	p.Code = strings.TrimSpace(p.Code)

	features := make(datatypes.JSONSlice[string], 0, len(p.KeyFeatures))
	for _, f := range p.KeyFeatures {
		if f = strings.TrimSpace(f); f != "" {
			features = append(features, f)
		}
	}
	p.KeyFeatures = features
	return nil
}

// ProductMedia is one uploaded image of a product. Smart icons carry a caption in Text.
type ProductMedia struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID uint      `gorm:"index;not null" json:"productId"`
	Type      MediaType `gorm:"size:20;not null;index" json:"type"`
	Text      *string   `gorm:"size:100" json:"text"`
	ImageURL  string    `gorm:"size:512;not null" json:"imageUrl"`
}

// BeforeSave rejects media rows with an unknown type.
func (m *ProductMedia) BeforeSave(tx *gorm.DB) error {
	if !m.Type.Valid() {
		return fmt.Errorf("product media: unknown type %q", m.Type)
	}
	return nil
}
