package http

import (
	"time"

	"ibp/internal/inmate/models"
)

type inmateDTO struct {
	Jurisdiction string     `json:"jurisdiction"`
	ID           int        `json:"id"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	Race         string     `json:"race,omitempty"`
	Sex          string     `json:"sex,omitempty"`
	URL          string     `json:"url,omitempty"`
	Release      string     `json:"release,omitempty"`
	Unit         *unitDTO   `json:"unit,omitempty"`
	FetchedAt    *time.Time `json:"fetched_at,omitempty"`

	Lookups  []lookupDTO  `json:"lookups"`
	Comments []commentDTO `json:"comments"`
	Requests []requestDTO `json:"requests"`
}

type unitDTO struct {
	Jurisdiction   string `json:"jurisdiction"`
	Name           string `json:"name"`
	StreetAddress  string `json:"street_address,omitempty"`
	City           string `json:"city,omitempty"`
	State          string `json:"state,omitempty"`
	Zipcode        string `json:"zipcode,omitempty"`
	URL            string `json:"url,omitempty"`
	ShippingMethod string `json:"shipping_method"`
}

type lookupDTO struct {
	Index     int       `json:"index"`
	CreatedAt time.Time `json:"created_at"`
}

type commentDTO struct {
	Index     int       `json:"index"`
	CreatedAt time.Time `json:"created_at"`
	Author    string    `json:"author,omitempty"`
	Body      string    `json:"body"`
}

type requestDTO struct {
	Index          int          `json:"index"`
	DatePostmarked string       `json:"date_postmarked"`
	DateProcessed  string       `json:"date_processed"`
	Action         string       `json:"action"`
	Status         string       `json:"status"`
	Shipment       *shipmentDTO `json:"shipment,omitempty"`
}

type shipmentDTO struct {
	ID             string `json:"id"`
	DateShipped    string `json:"date_shipped,omitempty"`
	WeightOunces   int    `json:"weight_ounces,omitempty"`
	PostageCents   int    `json:"postage_cents,omitempty"`
	TrackingURL    string `json:"tracking_url,omitempty"`
	TrackingNumber string `json:"tracking_number,omitempty"`
}

func toInmateDTO(inmate models.Inmate) inmateDTO {
	dto := inmateDTO{
		Jurisdiction: inmate.Jurisdiction.String(),
		ID:           inmate.ID,
		FirstName:    inmate.FirstName,
		LastName:     inmate.LastName,
		Race:         inmate.Race,
		Sex:          inmate.Sex,
		URL:          inmate.URL,
		Release:      inmate.Release.String(),
		FetchedAt:    inmate.FetchedAt,
		Lookups:      make([]lookupDTO, 0, len(inmate.Lookups)),
		Comments:     make([]commentDTO, 0, len(inmate.Comments)),
		Requests:     make([]requestDTO, 0, len(inmate.Requests)),
	}

	if inmate.Unit != nil {
		unit := toUnitDTO(*inmate.Unit)
		dto.Unit = &unit
	}
	for _, lookup := range inmate.Lookups {
		dto.Lookups = append(dto.Lookups, lookupDTO{Index: lookup.Index, CreatedAt: lookup.CreatedAt})
	}
	for _, comment := range inmate.Comments {
		dto.Comments = append(dto.Comments, toCommentDTO(comment))
	}
	for _, request := range inmate.Requests {
		dto.Requests = append(dto.Requests, toRequestDTO(request))
	}
	return dto
}

func toUnitDTO(unit models.Unit) unitDTO {
	return unitDTO{
		Jurisdiction:   unit.Jurisdiction.String(),
		Name:           unit.Name,
		StreetAddress:  unit.StreetAddress,
		City:           unit.City,
		State:          unit.State,
		Zipcode:        unit.Zipcode,
		URL:            unit.URL,
		ShippingMethod: string(unit.ShippingMethod),
	}
}

func toCommentDTO(comment models.Comment) commentDTO {
	return commentDTO{
		Index:     comment.Index,
		CreatedAt: comment.CreatedAt,
		Author:    comment.Author,
		Body:      comment.Body,
	}
}

func toRequestDTO(request models.Request) requestDTO {
	dto := requestDTO{
		Index:          request.Index,
		DatePostmarked: request.DatePostmarked.Format(dateLayout),
		DateProcessed:  request.DateProcessed.Format(dateLayout),
		Action:         string(request.Action),
		Status:         request.Status(),
	}
	if request.Shipment != nil {
		shipment := shipmentDTO{
			ID:             request.Shipment.ID.String(),
			WeightOunces:   request.Shipment.WeightOunces,
			PostageCents:   request.Shipment.PostageCents,
			TrackingURL:    request.Shipment.TrackingURL,
			TrackingNumber: request.Shipment.TrackingNumber,
		}
		if !request.Shipment.DateShipped.IsZero() {
			shipment.DateShipped = request.Shipment.DateShipped.Format(dateLayout)
		}
		dto.Shipment = &shipment
	}
	return dto
}
