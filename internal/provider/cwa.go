package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// CWA queries Central Weather Administration open data for earthquake
// reports and realtime station weather, plus the MOENV air quality feed.
type CWA struct {
	http     *http.Client
	token    string
	aqiKey   string
	baseURL  string
	moenvURL string
}

func NewCWA(token, aqiKey string) *CWA {
	return &CWA{
		http:     &http.Client{Timeout: requestTimeout},
		token:    token,
		aqiKey:   aqiKey,
		baseURL:  "https://opendata.cwa.gov.tw/api/v1/rest/datastore",
		moenvURL: "https://data.moenv.gov.tw/api/v2/aqx_p_432",
	}
}

type quakeRecord struct {
	ReportContent  string `json:"ReportContent"`
	ReportImageURI string `json:"ReportImageURI"`
	EarthquakeInfo struct {
		OriginTime string `json:"OriginTime"`
	} `json:"EarthquakeInfo"`
}

type quakeResponse struct {
	Records struct {
		Earthquake []quakeRecord `json:"Earthquake"`
	} `json:"records"`
}

// LatestEarthquake returns the report text and image of the most recent
// quake across the local (E-A0016-001) and significant (E-A0015-001)
// report feeds.
func (c *CWA) LatestEarthquake(ctx context.Context) (content, imageURL string, err error) {
	local, localErr := c.fetchQuake(ctx, "E-A0016-001")
	significant, sigErr := c.fetchQuake(ctx, "E-A0015-001")
	if localErr != nil && sigErr != nil {
		return "", "", fmt.Errorf("fetch earthquake reports: %w", localErr)
	}
	if localErr != nil {
		return significant.ReportContent, significant.ReportImageURI, nil
	}
	if sigErr != nil {
		return local.ReportContent, local.ReportImageURI, nil
	}
	// OriginTime sorts lexicographically (yyyy-mm-dd hh:mm:ss).
	if significant.EarthquakeInfo.OriginTime > local.EarthquakeInfo.OriginTime {
		return significant.ReportContent, significant.ReportImageURI, nil
	}
	return local.ReportContent, local.ReportImageURI, nil
}

func (c *CWA) fetchQuake(ctx context.Context, dataset string) (*quakeRecord, error) {
	u := fmt.Sprintf("%s/%s?Authorization=%s", c.baseURL, dataset, url.QueryEscape(c.token))

	var body quakeResponse
	if err := c.getJSON(ctx, u, &body); err != nil {
		return nil, err
	}
	if len(body.Records.Earthquake) == 0 {
		return nil, fmt.Errorf("dataset %s: no earthquake records", dataset)
	}
	return &body.Records.Earthquake[0], nil
}

type stationResponse struct {
	Records struct {
		Station []struct {
			GeoInfo struct {
				CountyName string `json:"CountyName"`
				TownName   string `json:"TownName"`
			} `json:"GeoInfo"`
			WeatherElement struct {
				Weather          string `json:"Weather"`
				AirTemperature   string `json:"AirTemperature"`
				RelativeHumidity string `json:"RelativeHumidity"`
			} `json:"WeatherElement"`
		} `json:"Station"`
	} `json:"records"`
}

type aqiResponse struct {
	Records []struct {
		County string `json:"county"`
		AQI    string `json:"aqi"`
		Status string `json:"status"`
	} `json:"records"`
}

// Weather matches an address against realtime station data and appends
// air quality plus care advice. The address only needs to contain a
// county or town name.
func (c *CWA) Weather(ctx context.Context, address string) (string, error) {
	result := "⚠️ 找不到該地點的氣象資料"
	var advice []string

	u := fmt.Sprintf("%s/O-A0001-001?Authorization=%s", c.baseURL, url.QueryEscape(c.token))
	var stations stationResponse
	if err := c.getJSON(ctx, u, &stations); err != nil {
		return "", fmt.Errorf("fetch weather stations: %w", err)
	}

	for _, st := range stations.Records.Station {
		if st.GeoInfo.CountyName == "" {
			continue
		}
		if !strings.Contains(address, st.GeoInfo.CountyName) && !strings.Contains(address, st.GeoInfo.TownName) {
			continue
		}

		weather := st.WeatherElement.Weather
		result = fmt.Sprintf("📍「%s」目前天氣狀況「%s」，溫度 %s°C，相對濕度 %s%%！",
			address, weather, st.WeatherElement.AirTemperature, st.WeatherElement.RelativeHumidity)

		if temp, err := strconv.ParseFloat(st.WeatherElement.AirTemperature, 64); err == nil {
			switch {
			case temp >= 30:
				advice = append(advice, "🌞 今天超熱，記得補充水分並防曬！")
			case temp > 10 && temp <= 20:
				advice = append(advice, "🍃 今天有點冷，記得穿暖一點歐！")
			case temp <= 10:
				advice = append(advice, "🧥 要凍僵啦，請裹好棉被！")
			}
		}
		for _, rainy := range []string{"雨", "降雨", "雷陣雨", "陰天有雨", "毛毛雨"} {
			if strings.Contains(weather, rainy) {
				advice = append(advice, "🌧️ 可能會下雨，建議攜帶雨具，以防萬一變成落湯雞！🐥💦")
				break
			}
		}
		break
	}

	aqiLine, aqiAdvice, err := c.airQuality(ctx, address)
	if err != nil {
		result += "\n⚠️ 無法取得空氣品質資訊"
	} else if aqiLine != "" {
		result += "\n\n" + aqiLine
		if aqiAdvice != "" {
			advice = append(advice, aqiAdvice)
		}
	}

	if len(advice) > 0 {
		result += "\n\n_________________\n💡 貼心提醒：\n" + strings.Join(advice, "\n")
	}
	return result, nil
}

func (c *CWA) airQuality(ctx context.Context, address string) (line, advice string, err error) {
	u := fmt.Sprintf("%s?api_key=%s&limit=1000&sort=ImportDate%%20desc&format=JSON", c.moenvURL, url.QueryEscape(c.aqiKey))
	var body aqiResponse
	if err := c.getJSON(ctx, u, &body); err != nil {
		return "", "", err
	}

	for _, rec := range body.Records {
		if rec.County == "" || !strings.Contains(address, rec.County) {
			continue
		}
		aqi, convErr := strconv.Atoi(rec.AQI)
		if convErr != nil {
			continue
		}
		line = fmt.Sprintf("🌫 AQI：%d，空氣品質 %s。", aqi, rec.Status)
		if aqi >= 100 {
			advice = "💨空氣品質較差，外出建議戴個口罩！"
		}
		return line, advice, nil
	}
	return "", "", nil
}

func (c *CWA) getJSON(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", u, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch %s: status %d", u, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", u, err)
	}
	return nil
}
