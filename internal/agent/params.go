package agent

import (
	"fmt"
	"strings"
)

// Translation opens the translation page.
type Translation struct {
	SourceLang string `json:"source_lang" yaml:"source_lang"`
	TargetLang string `json:"target_lang" yaml:"target_lang"`
	Bilingual  bool   `json:"bilingual" yaml:"bilingual"`
}

// Sports shows a score widget.
type Sports struct {
	Team1  string `json:"team1" yaml:"team1"`
	Score1 string `json:"score1" yaml:"score1"`
	Team2  string `json:"team2" yaml:"team2"`
	Score2 string `json:"score2" yaml:"score2"`
}

// News shows up to three headlines.
type News struct {
	Headlines []string `json:"headlines" yaml:"headlines"`
}

// Weather shows a weather widget.
type Weather struct {
	Icon   string `json:"icon" yaml:"icon"`
	Temp   string `json:"temp" yaml:"temp"`
	Status string `json:"status" yaml:"status"`
}

// Stock shows a stock ticker.
type Stock struct {
	Name   string `json:"name" yaml:"name"`
	Price  string `json:"price" yaml:"price"`
	Change string `json:"change" yaml:"change"`
}

// Video starts a video capture.
type Video struct {
	Duration string `json:"duration" yaml:"duration"`
}

// Teleprompter opens the teleprompter page.
type Teleprompter struct {
	Script   string `json:"script_name" yaml:"script_name"`
	Mode     string `json:"mode" yaml:"mode"`
	FontSize string `json:"font_size" yaml:"font_size"`
}

// POIList shows up to five points of interest.
type POIList struct {
	POIs []string `json:"pois" yaml:"pois"`
}

// TravelMode is how the user travels to a navigation destination.
type TravelMode string

const (
	TravelWalking    TravelMode = "walking"
	TravelMotorcycle TravelMode = "motorcycle"
	TravelDriving    TravelMode = "driving"
)

// Navigation starts turn-by-turn navigation.
type Navigation struct {
	Destination string     `json:"destination" yaml:"destination"`
	Mode        TravelMode `json:"mode" yaml:"mode"`
}

// ParseTravelMode maps a mode name; anything unrecognised is driving.
func ParseTravelMode(raw string) TravelMode {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "walking":
		return TravelWalking
	case "motorcycle":
		return TravelMotorcycle
	default:
		return TravelDriving
	}
}

// TranslationParams decodes page_translation arguments.
func TranslationParams(a Args) Translation {
	bilingual, _ := a.Bool("bilingual")
	return Translation{
		SourceLang: a.StringOr("source_lang", ""),
		TargetLang: a.StringOr("target_lang", ""),
		Bilingual:  bilingual,
	}
}

// SportsParams decodes widget_sports arguments.
func SportsParams(a Args) Sports {
	return Sports{
		Team1:  a.StringOr("team1", ""),
		Score1: a.StringOr("score1", ""),
		Team2:  a.StringOr("team2", ""),
		Score2: a.StringOr("score2", ""),
	}
}

// NewsParams decodes widget_news arguments, skipping empty headlines.
func NewsParams(a Args) News {
	return News{Headlines: numbered(a, "headline", 3)}
}

// WeatherParams decodes widget_weather arguments.
func WeatherParams(a Args) Weather {
	return Weather{
		Icon:   a.StringOr("icon", ""),
		Temp:   a.StringOr("temp", ""),
		Status: a.StringOr("status", ""),
	}
}

// StockParams decodes widget_stock_ticker arguments. The name falls back
// from fullname to stock_name to ticker; a price_line list is joined with
// commas and takes precedence over price.
func StockParams(a Args) Stock {
	name := a.StringOr("fullname", a.StringOr("stock_name", a.StringOr("ticker", "")))

	price := a.StringOr("price", "")
	if lines, ok := a.Strings("price_line"); ok {
		price = strings.Join(lines, ",")
	} else if line, ok := a.String("price_line"); ok {
		price = line
	}

	return Stock{
		Name:   name,
		Price:  price,
		Change: a.StringOr("change_pct", a.StringOr("change", "")),
	}
}

// VideoParams decodes page_take_vid arguments.
func VideoParams(a Args) Video {
	return Video{Duration: a.StringOr("duration", "")}
}

// TeleprompterParams decodes page_teleprompter arguments.
func TeleprompterParams(a Args) Teleprompter {
	return Teleprompter{
		Script:   a.StringOr("script_name", ""),
		Mode:     a.StringOr("mode", ""),
		FontSize: a.StringOr("font_size", ""),
	}
}

// POIParams decodes widget_point_of_interest arguments, skipping empty entries.
func POIParams(a Args) POIList {
	return POIList{POIs: numbered(a, "poi", 5)}
}

// NavigationParams decodes page_navigation arguments. Mode defaults to walking.
func NavigationParams(a Args) Navigation {
	return Navigation{
		Destination: a.StringOr("destination", ""),
		Mode:        ParseTravelMode(a.StringOr("mode", string(TravelWalking))),
	}
}

func numbered(a Args, prefix string, n int) []string {
	var out []string
	for i := 1; i <= n; i++ {
		if v := a.StringOr(fmt.Sprintf("%s%d", prefix, i), ""); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Params decodes the display arguments of a fire-and-forget tool.
// It returns nil for tools without arguments.
func Params(t Tool, a Args) any {
	switch t {
	case ToolTranslationPage:
		return TranslationParams(a)
	case ToolSportsWidget:
		return SportsParams(a)
	case ToolNewsWidget:
		return NewsParams(a)
	case ToolWeatherWidget:
		return WeatherParams(a)
	case ToolStockTicker:
		return StockParams(a)
	case ToolTakeVideo:
		return VideoParams(a)
	case ToolTeleprompter:
		return TeleprompterParams(a)
	case ToolPOIWidget:
		return POIParams(a)
	case ToolNavigationPage:
		return NavigationParams(a)
	default:
		return nil
	}
}
