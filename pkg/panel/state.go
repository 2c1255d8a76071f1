// Package panel simulates a round-robin panel discussion: a host opens the
// show, hands the floor to a randomly chosen guest persona, the guest speaks,
// control returns to the host, and the cycle repeats until a turn ceiling
// ends the discussion. The host↔player cycle is the one genuinely cyclic
// graph in this module; termination rests on the Ended flag plus the
// executor's step ceiling as a backstop.
package panel

// Persona describes one simulated guest.
type Persona struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Nature      string `json:"nature"`
	Experience  string `json:"experience"`
}

// State is the evolving record of one discussion run.
type State struct {
	Topic         string    `json:"topic"`
	Personas      []Persona `json:"personas"`
	Transcript    []string  `json:"transcript"`
	NextSpeaker   string    `json:"next_speaker,omitempty"`
	TurnCount     int       `json:"turn_count"`
	Ended         bool      `json:"is_ended"`
	ErrorMessages []string  `json:"error_messages,omitempty"`
}

// Merge applies a node delta. Transcript deltas carry the whole updated
// transcript (overwrite, like every other set field); the error log appends.
// Ended latches: once set it is never cleared within a run.
func (s State) Merge(d State) State {
	if d.Topic != "" {
		s.Topic = d.Topic
	}
	if d.Personas != nil {
		s.Personas = d.Personas
	}
	if d.Transcript != nil {
		s.Transcript = d.Transcript
	}
	if d.NextSpeaker != "" {
		s.NextSpeaker = d.NextSpeaker
	}
	if d.TurnCount != 0 {
		s.TurnCount = d.TurnCount
	}
	if d.Ended {
		s.Ended = true
	}
	s.ErrorMessages = append(s.ErrorMessages, d.ErrorMessages...)
	return s
}
