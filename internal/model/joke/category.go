package joke

import "strings"

// Category 笑话分类，取值与远端服务路径一致。
type Category string

const (
	Misc        Category = "Misc"
	Programming Category = "Programming"
	Dark        Category = "Dark"
	Pun         Category = "Pun"
	Spooky      Category = "Spooky"
	Christmas   Category = "Christmas"
	// Any 通配分类，表示任意主题。
	Any Category = "Any"
)

// Entry 描述菜单中的一个分类按键。
type Entry struct {
	Key      rune     `json:"key"`
	Category Category `json:"category"`
	Label    string   `json:"label"`
}

// Catalog 暴露分类查询，供控制器与HTTP处理器使用。
type Catalog interface {
	List() []Entry
	ForKey(key rune) (Category, bool)
}

// MemoryCatalog implements Catalog with a fixed slice.
type MemoryCatalog struct {
	items []Entry
}

// NewMemoryCatalog returns a MemoryCatalog preloaded with the supplied entries.
func NewMemoryCatalog(items []Entry) *MemoryCatalog {
	return &MemoryCatalog{items: append([]Entry(nil), items...)}
}

// Seed 返回设备键盘上固定的七个分类。
func Seed() []Entry {
	return []Entry{
		{Key: '1', Category: Misc, Label: "Misc"},
		{Key: '2', Category: Programming, Label: "Prog"},
		{Key: '3', Category: Dark, Label: "Dark"},
		{Key: '4', Category: Pun, Label: "Pun"},
		{Key: '5', Category: Spooky, Label: "Spooky"},
		{Key: '6', Category: Christmas, Label: "X-mas"},
		{Key: '7', Category: Any, Label: "Any"},
	}
}

// List returns the menu entries in key order.
func (c *MemoryCatalog) List() []Entry {
	return append([]Entry(nil), c.items...)
}

// ForKey 查找按键对应的分类。
func (c *MemoryCatalog) ForKey(key rune) (Category, bool) {
	for _, item := range c.items {
		if item.Key == key {
			return item.Category, true
		}
	}
	return "", false
}

// Valid 判断分类是否属于已知集合（包括通配）。
func (c Category) Valid() bool {
	switch c {
	case Misc, Programming, Dark, Pun, Spooky, Christmas, Any:
		return true
	default:
		return false
	}
}

// ParseCategory 忽略大小写解析分类名称。
func ParseCategory(raw string) (Category, bool) {
	normalized := strings.TrimSpace(raw)
	for _, item := range Seed() {
		if strings.EqualFold(string(item.Category), normalized) || strings.EqualFold(item.Label, normalized) {
			return item.Category, true
		}
	}
	return "", false
}
