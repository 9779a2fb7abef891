package semantic

// Hit is a single nearest-neighbour match: the position of the stored vector
// and its inner-product score. Positions index the corpus the vectors were
// built from.
type Hit struct {
	Position int     `json:"position"`
	Score    float32 `json:"score"`
}
