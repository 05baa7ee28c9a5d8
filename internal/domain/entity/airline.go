package entity

// Airline is a carrier reference row used to repair flight numbers
type Airline struct {
	ID   uint
	Code string
	Name string
}
