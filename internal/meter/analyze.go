package meter

import (
	"fmt"
)

// DaySummary aggregates one day's readings per direction and tariff, in kWh.
type DaySummary struct {
	Date            string
	HighConsumption float64
	LowConsumption  float64
	HighInjection   float64
	LowInjection    float64
}

// Consumption is the day's total consumption across tariffs.
func (s DaySummary) Consumption() float64 {
	return s.HighConsumption + s.LowConsumption
}

// Injection is the day's total injection across tariffs.
func (s DaySummary) Injection() float64 {
	return s.HighInjection + s.LowInjection
}

// Net is consumption minus injection; negative means the meter fed more into
// the grid than it drew.
func (s DaySummary) Net() float64 {
	return s.Consumption() - s.Injection()
}

// NetByTariff is consumption minus injection for a single tariff bucket.
func (s DaySummary) NetByTariff(tariff int) float64 {
	if tariff == TariffHigh {
		return s.HighConsumption - s.HighInjection
	}
	return s.LowConsumption - s.LowInjection
}

// Summarize folds day records into per-day totals, keeping record order.
func Summarize(days []DayRecord) []DaySummary {
	summaries := make([]DaySummary, 0, len(days))
	for _, day := range days {
		summary := DaySummary{Date: day.Date}
		for _, reading := range day.Readings {
			switch {
			case reading.Direction == DirectionConsumption && reading.Tariff == TariffHigh:
				summary.HighConsumption += reading.Value
			case reading.Direction == DirectionConsumption && reading.Tariff == TariffLow:
				summary.LowConsumption += reading.Value
			case reading.Direction == DirectionInjection && reading.Tariff == TariffHigh:
				summary.HighInjection += reading.Value
			case reading.Direction == DirectionInjection && reading.Tariff == TariffLow:
				summary.LowInjection += reading.Value
			}
		}
		summaries = append(summaries, summary)
	}
	return summaries
}

// Report prints a human-readable consumption analysis of the retrieved days.
func Report(days []DayRecord) {
	if len(days) == 0 {
		fmt.Println("No data to analyze")
		return
	}

	fmt.Println()
	fmt.Println("CONSUMPTION ANALYSIS:")
	fmt.Println("==================================================")
	fmt.Printf("Period: %d days\n", len(days))

	for i, summary := range Summarize(days) {
		date := summary.Date
		if date == "" {
			date = "Unknown date"
		}
		fmt.Printf("\nDay %d: %s\n", i+1, date)
		if summary.HighConsumption != 0 {
			fmt.Printf("   Consumption (High): %.3f kWh\n", summary.HighConsumption)
		}
		if summary.LowConsumption != 0 {
			fmt.Printf("   Consumption (Low): %.3f kWh\n", summary.LowConsumption)
		}
		if summary.HighInjection != 0 {
			fmt.Printf("   Injection (High): %.3f kWh\n", summary.HighInjection)
		}
		if summary.LowInjection != 0 {
			fmt.Printf("   Injection (Low): %.3f kWh\n", summary.LowInjection)
		}
		fmt.Printf("   Total consumption: %.3f kWh\n", summary.Consumption())
		fmt.Printf("   Total injection: %.3f kWh\n", summary.Injection())
		fmt.Printf("   Net consumption: %.3f kWh\n", summary.Net())
	}
}
