package relay

// Mode 区分同一端点上的两种用途。
type Mode string

const (
	// Transform 请求转换（翻译），线上 rating 字段为 0。
	Transform Mode = "transform"
	// Rate 提交 1-5 的评分。
	Rate Mode = "rate"
)

// Payload 发往 webhook 的请求体。
type Payload struct {
	Category string `json:"category"`
	Joke     string `json:"joke"`
	Rating   int    `json:"rating"`
}

// 诊断文本，失败时作为 ResponseText 返回。
const (
	TextLinkUnavailable = "WiFi Error"
	TextAllocFailed     = "Alloc Failed"
	TextConnectFailed   = "Connection Failed"
	TextRequestFailed   = "Request Failed"
	TextDisabled        = "Relay Disabled"
)

// Outcome 一次 relay 调用的结果，不在调用之外保存。
type Outcome struct {
	Succeeded    bool   `json:"succeeded"`
	ResponseText string `json:"responseText"`
	Attempts     int    `json:"attempts"`
	Err          error  `json:"-"`
}
