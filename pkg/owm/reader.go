package owm

import "encoding/json"

// Shape is a response record the reader can decode.
type Shape interface {
	CurrentWeather | Forecast
}

// Update is one consumed item: a decoded record or the error that replaced it.
type Update[T Shape] struct {
	Weather T
	Err     error
}

// Poll consumes at most one pending item from updates without blocking.
// ok is false when nothing is pending or the channel is closed.
// Published errors are passed through unchanged; a body that fails to decode
// yields a *DecodeError.
func Poll[T Shape](updates <-chan Response) (u Update[T], ok bool) {
	select {
	case r, open := <-updates:
		if !open {
			return Update[T]{}, false
		}
		if r.Err != nil {
			return Update[T]{Err: r.Err}, true
		}
		w, err := Decode[T]([]byte(r.Body))
		return Update[T]{Weather: w, Err: err}, true
	default:
		return Update[T]{}, false
	}
}

// PollCurrent is Poll for the current weather endpoint.
func PollCurrent(updates <-chan Response) (Update[CurrentWeather], bool) {
	return Poll[CurrentWeather](updates)
}

// PollForecast is Poll for the forecast endpoint.
func PollForecast(updates <-chan Response) (Update[Forecast], bool) {
	return Poll[Forecast](updates)
}

// Decode parses body into T.
func Decode[T Shape](body []byte) (T, error) {
	var w T
	if err := json.Unmarshal(body, &w); err != nil {
		var zero T
		return zero, &DecodeError{Err: err}
	}
	return w, nil
}
