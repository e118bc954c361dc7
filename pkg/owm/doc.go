// Package owm polls the OpenWeatherMap API in the background and hands the latest
// reading to the caller without blocking.
//
// A Poller owns one goroutine that issues a GET per cycle and publishes the raw
// outcome to a buffered channel. The caller drains that channel at its own pace
// with Poll, which decodes the body into a CurrentWeather or Forecast:
//
//	p, err := owm.Start(ctx, owm.Query{Location: "2643743", Units: "metric", APIKey: key}, 10*time.Minute)
//	if err != nil {
//		return err
//	}
//	defer p.Stop()
//
//	if u, ok := owm.PollCurrent(p.Updates()); ok {
//		if u.Err != nil {
//			log.Printf("weather: %v", u.Err)
//		} else {
//			log.Printf("%s: %.1f", u.Weather.Name, u.Weather.Main.Temp)
//		}
//	}
package owm
