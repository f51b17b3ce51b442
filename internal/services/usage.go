package services

// Usage accumulates backend token consumption across one or more calls.
type Usage struct {
	TokensIn  int64
	TokensOut int64
}

// Add folds another usage sample into the receiver.
func (u *Usage) Add(other Usage) {
	u.TokensIn += other.TokensIn
	u.TokensOut += other.TokensOut
}

// Total returns the combined token count.
func (u Usage) Total() int64 {
	return u.TokensIn + u.TokensOut
}
