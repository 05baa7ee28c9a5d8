package entity

// Airport is an airport reference row used to render city names
type Airport struct {
	ID          uint
	AirportCode string
	AirportName string
	CityCode    string
	CityName    string
	TzName      string
}
