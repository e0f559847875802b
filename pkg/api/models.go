package api

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// StationList is the response of GET /stations.
type StationList struct {
	Stations []StationPayload `json:"stations"`
}

// StationPayload is a station as the reservation API sends it. Use
// ToRecord to get the normalized form.
type StationPayload struct {
	ID             flexInt64  `json:"id"`
	Name           string     `json:"name"`
	Latitude       flexFloat  `json:"latitude"`
	Longitude      flexFloat  `json:"longitude"`
	PricePerKwh    flexFloat  `json:"pricePerKwh"`
	ConnectorTypes []string   `json:"connectorTypes"`
	AvailableSlots flexInt64  `json:"availableSlots"`
	TotalSlots     flexInt64  `json:"totalSlots"`
	Address        string     `json:"address"`
	PowerOutput    flexString `json:"powerOutput"`
	OperatingHours string     `json:"operatingHours"`
	Amenities      []string   `json:"amenities"`
	Status         string     `json:"status"`
}

// BookingRequest is the body of POST /bookings.
type BookingRequest struct {
	StationID   int64   `json:"stationId"`
	Date        string  `json:"date"`
	TimeSlot    string  `json:"timeSlot"`
	Duration    int     `json:"duration"`
	VehicleData any     `json:"vehicleData,omitempty"`
	Amount      float64 `json:"amount"`
}

// ReviewRequest is the body of POST /reviews.
type ReviewRequest struct {
	StationID int64  `json:"stationId"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
}

// Review is a station review as returned by GET /reviews/station/{id}.
type Review struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	StationID int64     `json:"stationId"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
}

// PaymentOrder is the order created by POST /payment/create-order. Amount is
// in paise.
type PaymentOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// remoteBooking accepts both capitalizations the API has used for booking
// fields.
type remoteBooking struct {
	ID          flexString      `json:"id"`
	IDAlt       flexString      `json:"Id"`
	StationID   flexInt64       `json:"stationId"`
	StationAlt  flexInt64       `json:"StationId"`
	Station     *bookingStation `json:"station"`
	StationName string          `json:"stationName"`
	Date        string          `json:"date"`
	DateAlt     string          `json:"Date"`
	TimeSlot    string          `json:"timeSlot"`
	TimeSlotAlt string          `json:"TimeSlot"`
	Duration    flexInt64       `json:"duration"`
	DurationAlt flexInt64       `json:"Duration"`
	Amount      flexFloat       `json:"amount"`
	AmountAlt   flexFloat       `json:"Amount"`
	Status      string          `json:"status"`
	StatusAlt   string          `json:"Status"`
	CreatedAt   *time.Time      `json:"createdAt"`
	CreatedAlt  *time.Time      `json:"CreatedAt"`
}

type bookingStation struct {
	ID   flexInt64 `json:"id"`
	Name string    `json:"name"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// flexFloat decodes numbers sent either as JSON numbers or numeric strings.
// Anything else decodes to zero.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	*f = 0
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	*f = flexFloat(v)
	return nil
}

type flexInt64 int64

func (i *flexInt64) UnmarshalJSON(b []byte) error {
	var f flexFloat
	if err := f.UnmarshalJSON(b); err != nil {
		return err
	}
	*i = flexInt64(f)
	return nil
}

// flexString decodes strings and numbers into a string.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err == nil {
		*s = flexString(str)
		return nil
	}
	v := strings.TrimSpace(string(b))
	if v == "null" {
		v = ""
	}
	*s = flexString(v)
	return nil
}
