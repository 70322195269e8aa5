// README: Running-average math for rating summaries.
package rating

import "fmt"

func ValidateScore(score int) error {
	if score < MinScore || score > MaxScore {
		return fmt.Errorf("%w: got %d", ErrOutOfRange, score)
	}
	return nil
}

// Record folds one score into s: avg' = (avg*n + score) / (n+1).
func Record(s Summary, score int) (Summary, error) {
	if err := ValidateScore(score); err != nil {
		return s, err
	}
	n := float64(s.Count)
	return Summary{
		Average: (s.Average*n + float64(score)) / (n + 1),
		Count:   s.Count + 1,
	}, nil
}

// Slots holds the at-most-one rating per direction stored on a booking.
type Slots struct {
	ByRequester *Rating `json:"by_requester,omitempty"`
	ByCarrier   *Rating `json:"by_carrier,omitempty"`
}

// Set stores r in its direction's slot. A populated slot is never overwritten.
func (s *Slots) Set(r Rating) error {
	if err := ValidateScore(r.Score); err != nil {
		return err
	}
	slot := s.slot(r.Direction)
	if slot == nil {
		return fmt.Errorf("unknown rating direction %q", r.Direction)
	}
	if *slot != nil {
		return ErrDuplicate
	}
	cp := r
	*slot = &cp
	return nil
}

func (s *Slots) Get(d Direction) *Rating {
	if slot := s.slot(d); slot != nil {
		return *slot
	}
	return nil
}

func (s *Slots) slot(d Direction) **Rating {
	switch d {
	case RequesterToCarrier:
		return &s.ByRequester
	case CarrierToRequester:
		return &s.ByCarrier
	}
	return nil
}
