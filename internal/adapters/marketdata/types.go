package marketdata

// DTOs del vendor. Solo los campos que consumimos; el resto se descarta
// en el decode.

type fundamentalsResponse struct {
	Profile companyProfile `json:"profile"`
}

type companyProfile struct {
	Symbol       string  `json:"symbol"`
	CompanyName  string  `json:"company_name"`
	Price        float64 `json:"last_price"`
	MarketCap    float64 `json:"market_cap"`
	PERatio      float64 `json:"pe_ratio"`
	ROE          float64 `json:"return_on_equity"`
	DebtToEquity float64 `json:"debt_to_equity"`
	Sector       string  `json:"sector"`
	Industry     string  `json:"industry"`

	// EPS trimestral, del más reciente al más antiguo.
	QuarterlyEPS []float64 `json:"quarterly_eps"`
}

type historyResponse struct {
	History struct {
		Day []historyDay `json:"day"`
	} `json:"history"`
}

type historyDay struct {
	Date   string  `json:"date"` // YYYY-MM-DD
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

type expirationsResponse struct {
	Expirations struct {
		Date []string `json:"date"` // YYYY-MM-DD
	} `json:"expirations"`
}

type chainResponse struct {
	Options struct {
		Option []chainOption `json:"option"`
	} `json:"options"`
}

type chainOption struct {
	Symbol       string  `json:"symbol"`
	Underlying   string  `json:"underlying"`
	Strike       float64 `json:"strike"`
	OptionType   string  `json:"option_type"` // "call" | "put"
	Expiration   string  `json:"expiration_date"`
	Bid          float64 `json:"bid"`
	Ask          float64 `json:"ask"`
	Last         float64 `json:"last"`
	Volume       int64   `json:"volume"`
	OpenInterest int64   `json:"open_interest"`

	Greeks *chainGreeks `json:"greeks"`
}

type chainGreeks struct {
	Delta  float64 `json:"delta"`
	Gamma  float64 `json:"gamma"`
	Theta  float64 `json:"theta"`
	Vega   float64 `json:"vega"`
	Rho    float64 `json:"rho"`
	MidIV  float64 `json:"mid_iv"`
	SmvVol float64 `json:"smv_vol"`
	IVRank float64 `json:"iv_rank"` // 0-100, si el vendor lo trae
	BidIV  float64 `json:"bid_iv"`
	AskIV  float64 `json:"ask_iv"`
}
