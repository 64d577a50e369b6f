package room

type Player struct {
	Status    int
	Position  float64
	UpdatedAt int64
}
