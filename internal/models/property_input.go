package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

// PropertyInput carries a create or partial update request. Nil fields are left unchanged.
type PropertyInput struct {
	Title        *string         `json:"title" validate:"omitempty,min=1,max=200"`
	Description  *string         `json:"description" validate:"omitempty,max=10000"`
	ListingType  *ListingType    `json:"listingType" validate:"omitempty,oneof=sale rent"`
	PropertyType *PropertyType   `json:"propertyType" validate:"omitempty,oneof=house apartment condo townhouse duplex studio villa land commercial industrial farm"`
	Status       *PropertyStatus `json:"status" validate:"omitempty,oneof=draft active pending sold rented off_market"`

	Location      *string  `json:"location" validate:"omitempty,min=1,max=500"`
	StreetAddress *string  `json:"streetAddress" validate:"omitempty,max=255"`
	City          *string  `json:"city" validate:"omitempty,max=120"`
	State         *string  `json:"state" validate:"omitempty,max=120"`
	PostalCode    *string  `json:"postalCode" validate:"omitempty,max=20"`
	Country       *string  `json:"country" validate:"omitempty,max=120"`
	Latitude      *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude     *float64 `json:"longitude" validate:"omitempty,longitude"`

	Dimensions       *string      `json:"dimensions" validate:"omitempty,max=120"`
	BuildingSizeSqft *int         `json:"buildingSizeSqft" validate:"omitempty,min=0"`
	LotSizeSqft      *int         `json:"lotSizeSqft" validate:"omitempty,min=0"`
	LotSizeAcres     *float64     `json:"lotSizeAcres" validate:"omitempty,min=0"`
	YearBuilt        *int         `json:"yearBuilt" validate:"omitempty,min=1000,max=3000"`
	Floors           *int         `json:"floors" validate:"omitempty,min=0,max=500"`
	Beds             *int         `json:"beds" validate:"omitempty,min=0,max=1000"`
	Baths            *int         `json:"baths" validate:"omitempty,min=0,max=1000"`
	ParkingSpaces    *int         `json:"parkingSpaces" validate:"omitempty,min=0"`
	ParkingType      *ParkingType `json:"parkingType" validate:"omitempty,oneof=garage carport street covered assigned none"`
	Heating          *HeatingType `json:"heating" validate:"omitempty,oneof=none electric gas oil heat_pump solar geothermal"`
	Cooling          *CoolingType `json:"cooling" validate:"omitempty,oneof=none central wall_unit evaporative geothermal"`
	Zoning           *Zoning      `json:"zoning" validate:"omitempty,oneof=residential commercial agricultural industrial mixed_use recreational other"`

	Currency        *string    `json:"currency" validate:"omitempty,len=3,alpha"`
	Price           *int       `json:"price" validate:"omitempty,min=0"`
	SalePrice       *int       `json:"salePrice" validate:"omitempty,min=0"`
	RentalPrice     *int       `json:"rentalPrice" validate:"omitempty,min=0"`
	SecurityDeposit *int       `json:"securityDeposit" validate:"omitempty,min=0"`
	HOAFee          *int       `json:"hoaFee" validate:"omitempty,min=0"`
	AnnualTaxes     *int       `json:"annualTaxes" validate:"omitempty,min=0"`
	AvailableFrom   *time.Time `json:"availableFrom"`

	ImageURL       *string        `json:"imageUrl" validate:"omitempty,max=2048"`
	Images         *[]string      `json:"images" validate:"omitempty,max=50,dive,max=2048"`
	VideoURL       *string        `json:"videoUrl" validate:"omitempty,url"`
	VirtualTourURL *string        `json:"virtualTourUrl" validate:"omitempty,url"`
	Amenities      *[]string      `json:"amenities" validate:"omitempty,max=100,dive,max=120"`
	Features       *[]string      `json:"features" validate:"omitempty,max=100,dive,max=120"`
	Utilities      map[string]any `json:"utilities"`

	OwnerID    *string `json:"ownerId" validate:"omitempty,max=64"`
	IsFeatured *bool   `json:"isFeatured"`
	IsNew      *bool   `json:"isNew"`
}

// MissingRequired names the fields a new listing must have.
func (in *PropertyInput) MissingRequired() []string {
	var missing []string
	if in.Title == nil || strings.TrimSpace(*in.Title) == "" {
		missing = append(missing, "title")
	}
	if in.PropertyType == nil || *in.PropertyType == "" {
		missing = append(missing, "propertyType")
	}
	if in.Location == nil || strings.TrimSpace(*in.Location) == "" {
		missing = append(missing, "location")
	}
	return missing
}

// ApplyTo copies every set field onto p.
func (in *PropertyInput) ApplyTo(p *Property) {
	if in.Title != nil {
		p.Title = strings.TrimSpace(*in.Title)
	}
	setIfPresent(&p.Description, in.Description)
	if in.ListingType != nil {
		p.ListingType = *in.ListingType
	}
	if in.PropertyType != nil {
		p.PropertyType = *in.PropertyType
	}
	if in.Status != nil {
		p.Status = *in.Status
	}
	if in.Location != nil {
		p.Location = strings.TrimSpace(*in.Location)
	}
	setIfPresent(&p.StreetAddress, in.StreetAddress)
	setIfPresent(&p.City, in.City)
	setIfPresent(&p.State, in.State)
	setIfPresent(&p.PostalCode, in.PostalCode)
	setIfPresent(&p.Country, in.Country)
	setIfPresent(&p.Latitude, in.Latitude)
	setIfPresent(&p.Longitude, in.Longitude)

	setIfPresent(&p.Dimensions, in.Dimensions)
	setIfPresent(&p.BuildingSizeSqft, in.BuildingSizeSqft)
	setIfPresent(&p.LotSizeSqft, in.LotSizeSqft)
	setIfPresent(&p.LotSizeAcres, in.LotSizeAcres)
	setIfPresent(&p.YearBuilt, in.YearBuilt)
	setIfPresent(&p.Floors, in.Floors)
	setIfPresent(&p.Beds, in.Beds)
	setIfPresent(&p.Baths, in.Baths)
	setIfPresent(&p.ParkingSpaces, in.ParkingSpaces)
	setIfPresent(&p.ParkingType, in.ParkingType)
	setIfPresent(&p.Heating, in.Heating)
	setIfPresent(&p.Cooling, in.Cooling)
	setIfPresent(&p.Zoning, in.Zoning)

	if in.Currency != nil {
		p.Currency = strings.ToUpper(*in.Currency)
	}
	setIfPresent(&p.Price, in.Price)
	setIfPresent(&p.SalePrice, in.SalePrice)
	setIfPresent(&p.RentalPrice, in.RentalPrice)
	setIfPresent(&p.SecurityDeposit, in.SecurityDeposit)
	setIfPresent(&p.HOAFee, in.HOAFee)
	setIfPresent(&p.AnnualTaxes, in.AnnualTaxes)
	setIfPresent(&p.AvailableFrom, in.AvailableFrom)

	setIfPresent(&p.ImageURL, in.ImageURL)
	if in.Images != nil {
		p.Images = datatypes.JSONSlice[string](*in.Images)
	}
	setIfPresent(&p.VideoURL, in.VideoURL)
	setIfPresent(&p.VirtualTourURL, in.VirtualTourURL)
	if in.Amenities != nil {
		p.Amenities = datatypes.JSONSlice[string](*in.Amenities)
	}
	if in.Features != nil {
		p.Features = datatypes.JSONSlice[string](*in.Features)
	}
	if in.Utilities != nil {
		p.Utilities = datatypes.JSONMap(in.Utilities)
	}

	setIfPresent(&p.OwnerID, in.OwnerID)
	if in.IsFeatured != nil {
		p.IsFeatured = *in.IsFeatured
	}
	if in.IsNew != nil {
		p.IsNew = *in.IsNew
	}
}

func setIfPresent[T any](dst **T, src *T) {
	if src == nil {
		return
	}
	v := *src
	*dst = &v
}
