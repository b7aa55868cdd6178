package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/jokebox/internal/model/joke"
)

// State 控制器状态。
type State string

const (
	Idle           State = "idle"
	AwaitingRating State = "awaiting_rating"
)

// Session 一次“选择-评分”周期的可变记录，由控制循环独占。
type Session struct {
	ID                 string
	State              State
	Category           joke.Category
	Content            string
	TransformedContent string
	Rating             int
	UpdatedAt          time.Time
}

// New 返回处于 Idle 的空会话。
func New() *Session {
	return &Session{State: Idle, UpdatedAt: time.Now().UTC()}
}

// Begin 开始新的周期：记录分类并清空上一轮的内容与评分。
func (s *Session) Begin(category joke.Category) {
	s.ID = uuid.NewString()
	s.Category = category
	s.Content = ""
	s.TransformedContent = ""
	s.Rating = 0
	s.touch()
}

// Loaded 记录获取成功的内容与转换结果，并进入等待评分。
func (s *Session) Loaded(content, transformed string) {
	s.Content = content
	s.TransformedContent = transformed
	s.State = AwaitingRating
	s.touch()
}

// Rated 记录评分并回到 Idle。
func (s *Session) Rated(rating int) {
	s.Rating = rating
	s.State = Idle
	s.touch()
}

// Skipped 丢弃待定评分并回到 Idle。
func (s *Session) Skipped() {
	s.Rating = 0
	s.State = Idle
	s.touch()
}

// Snapshot returns a read-only copy.
func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		ID:                 s.ID,
		State:              s.State,
		Category:           s.Category,
		Content:            s.Content,
		TransformedContent: s.TransformedContent,
		Rating:             s.Rating,
		UpdatedAt:          s.UpdatedAt,
	}
}

func (s *Session) touch() {
	s.UpdatedAt = time.Now().UTC()
}

// Snapshot 会话的只读副本，供HTTP等观察者读取。
type Snapshot struct {
	ID                 string        `json:"id,omitempty"`
	State              State         `json:"state"`
	Category           joke.Category `json:"category,omitempty"`
	Content            string        `json:"content,omitempty"`
	TransformedContent string        `json:"transformedContent,omitempty"`
	Rating             int           `json:"rating"`
	UpdatedAt          time.Time     `json:"updatedAt"`
}
