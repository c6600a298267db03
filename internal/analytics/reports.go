package analytics

// Dashboard, sales and chat reports return fixed sample figures until the
// reporting pipeline exists.

type TopProduct struct {
	Name    string  `json:"name"`
	Sales   int     `json:"sales"`
	Revenue float64 `json:"revenue"`
}

type ChatMetrics struct {
	TotalMessages         int     `json:"total_messages"`
	AvgMessagesPerSession float64 `json:"avg_messages_per_session"`
	ResolutionRate        float64 `json:"resolution_rate"`
	SatisfactionScore     float64 `json:"satisfaction_score"`
}

type TrafficSource struct {
	Source     string  `json:"source"`
	Visitors   int     `json:"visitors"`
	Percentage float64 `json:"percentage"`
}

type Dashboard struct {
	TotalUsers         int             `json:"total_users"`
	ActiveSessions     int             `json:"active_sessions"`
	TotalOrders        int             `json:"total_orders"`
	Revenue            float64         `json:"revenue"`
	ConversionRate     float64         `json:"conversion_rate"`
	AvgSessionDuration int             `json:"avg_session_duration"`
	TopProducts        []TopProduct    `json:"top_products"`
	ChatMetrics        ChatMetrics     `json:"chat_metrics"`
	TrafficSources     []TrafficSource `json:"traffic_sources"`
}

func SampleDashboard() Dashboard {
	return Dashboard{
		TotalUsers:         1250,
		ActiveSessions:     45,
		TotalOrders:        890,
		Revenue:            125000.50,
		ConversionRate:     3.2,
		AvgSessionDuration: 420,
		TopProducts: []TopProduct{
			{Name: `MacBook Pro 16"`, Sales: 45, Revenue: 112455.00},
			{Name: "iPhone 15 Pro", Sales: 78, Revenue: 77922.00},
			{Name: `iPad Pro 12.9"`, Sales: 32, Revenue: 35168.00},
		},
		ChatMetrics: ChatMetrics{
			TotalMessages:         5420,
			AvgMessagesPerSession: 8.5,
			ResolutionRate:        85.2,
			SatisfactionScore:     4.3,
		},
		TrafficSources: []TrafficSource{
			{Source: "organic", Visitors: 450, Percentage: 45.0},
			{Source: "direct", Visitors: 300, Percentage: 30.0},
			{Source: "social", Visitors: 150, Percentage: 15.0},
			{Source: "referral", Visitors: 100, Percentage: 10.0},
		},
	}
}

type SalesPoint struct {
	Date    string  `json:"date"`
	Orders  int     `json:"orders"`
	Revenue float64 `json:"revenue"`
}

type SalesReport struct {
	Sales        []SalesPoint `json:"sales"`
	Period       string       `json:"period"`
	TotalOrders  int          `json:"total_orders"`
	TotalRevenue float64      `json:"total_revenue"`
}

// SampleSales reports per day, week or month; anything else means day.
func SampleSales(period string) SalesReport {
	switch period {
	case "day", "week", "month":
	default:
		period = "day"
	}
	r := SalesReport{
		Period: period,
		Sales: []SalesPoint{
			{Date: "2024-01-01", Orders: 25, Revenue: 12500.00},
			{Date: "2024-01-02", Orders: 30, Revenue: 15000.00},
			{Date: "2024-01-03", Orders: 28, Revenue: 14000.00},
			{Date: "2024-01-04", Orders: 35, Revenue: 17500.00},
			{Date: "2024-01-05", Orders: 32, Revenue: 16000.00},
		},
	}
	for _, p := range r.Sales {
		r.TotalOrders += p.Orders
		r.TotalRevenue += p.Revenue
	}
	return r
}

type ScorePoint struct {
	Date  string  `json:"date"`
	Score float64 `json:"score"`
}

type IntentShare struct {
	Intent     string  `json:"intent"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

type ChatReport struct {
	TotalSessions         int           `json:"total_sessions"`
	TotalMessages         int           `json:"total_messages"`
	AvgMessagesPerSession float64       `json:"avg_messages_per_session"`
	AvgSessionDuration    int           `json:"avg_session_duration"`
	ResolutionRate        float64       `json:"resolution_rate"`
	SatisfactionScores    []ScorePoint  `json:"satisfaction_scores"`
	CommonIntents         []IntentShare `json:"common_intents"`
}

func SampleChat() ChatReport {
	return ChatReport{
		TotalSessions:         1250,
		TotalMessages:         8500,
		AvgMessagesPerSession: 6.8,
		AvgSessionDuration:    380,
		ResolutionRate:        82.5,
		SatisfactionScores: []ScorePoint{
			{Date: "2024-01-01", Score: 4.2},
			{Date: "2024-01-02", Score: 4.3},
			{Date: "2024-01-03", Score: 4.1},
			{Date: "2024-01-04", Score: 4.4},
			{Date: "2024-01-05", Score: 4.3},
		},
		CommonIntents: []IntentShare{
			{Intent: "product_search", Count: 2100, Percentage: 35.0},
			{Intent: "order_status", Count: 1200, Percentage: 20.0},
			{Intent: "product_info", Count: 900, Percentage: 15.0},
			{Intent: "support", Count: 600, Percentage: 10.0},
			{Intent: "other", Count: 1200, Percentage: 20.0},
		},
	}
}
