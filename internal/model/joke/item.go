package joke

// Kind 区分单段与两段式笑话。
type Kind string

const (
	Single  Kind = "single"
	TwoPart Kind = "twopart"
)

// Separator joins setup and delivery for display.
const Separator = "  "

// FallbackMarker 获取失败时渲染在内容位置的标记。
const FallbackMarker = "<error>"

// Item 一次获取得到的笑话，消费后即丢弃。
type Item struct {
	Kind     Kind     `json:"kind"`
	Category Category `json:"category"`
	Body     string   `json:"body"`
	Setup    string   `json:"setup,omitempty"`
	Delivery string   `json:"delivery,omitempty"`
}

// Fallback 构造失败时可渲染的占位内容。
func Fallback(category Category) Item {
	return Item{Kind: Single, Category: category, Body: FallbackMarker}
}

// NewSingle builds a single-part item.
func NewSingle(category Category, text string) Item {
	return Item{Kind: Single, Category: category, Body: text}
}

// NewTwoPart builds a two-part item whose body is setup and delivery joined by Separator.
func NewTwoPart(category Category, setup, delivery string) Item {
	return Item{
		Kind:     TwoPart,
		Category: category,
		Body:     setup + Separator + delivery,
		Setup:    setup,
		Delivery: delivery,
	}
}
