package translate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/jokebox/internal/model/joke"
)

// ErrDisabled 未配置大模型时返回。
var ErrDisabled = errors.New("translator disabled")

// Config 控制翻译兜底服务。
type Config struct {
	Enabled        bool
	TargetLanguage string
}

// Service 在 relay 翻译失败时使用大模型翻译笑话。
type Service struct {
	enabled bool
	target  string
	chain   compose.Runnable[map[string]any, *schema.Message]
}

// NewService 创建翻译服务。chatModel 为 nil 或未启用时返回禁用的服务而不是错误。
func NewService(ctx context.Context, chatModel model.ChatModel, cfg Config) (*Service, error) {
	target := strings.TrimSpace(cfg.TargetLanguage)
	if target == "" {
		target = "Korean"
	}

	svc := &Service{
		enabled: cfg.Enabled && chatModel != nil,
		target:  target,
	}
	if !svc.enabled {
		return svc, nil
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(translateSystemPrompt),
		schema.UserMessage(translateUserPrompt),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile translate chain: %w", err)
	}

	svc.chain = runnable
	return svc, nil
}

// Enabled 返回翻译服务是否可用。
func (s *Service) Enabled() bool {
	return s != nil && s.enabled && s.chain != nil
}

// Translate 将笑话翻译为目标语言。
func (s *Service) Translate(ctx context.Context, category joke.Category, content string) (string, error) {
	if !s.Enabled() {
		return "", ErrDisabled
	}
	if strings.TrimSpace(content) == "" {
		return "", errors.New("nothing to translate")
	}

	msg, err := s.chain.Invoke(ctx, map[string]any{
		"language": s.target,
		"category": string(category),
		"joke":     content,
	})
	if err != nil {
		return "", fmt.Errorf("translate chain invoke: %w", err)
	}
	if msg == nil {
		return "", errors.New("translate chain returned no message")
	}

	text := cleanOutput(msg.Content)
	if text == "" {
		return "", errors.New("translate chain returned empty text")
	}

	log.Printf("[translate] category=%s length=%d", category, len(text))
	return text, nil
}

// cleanOutput 去掉模型常见的包裹：代码块、引号、"Translation:" 前缀。
func cleanOutput(content string) string {
	text := strings.TrimSpace(content)
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	for _, prefix := range []string{"Translation:", "translation:", "번역:"} {
		if strings.HasPrefix(text, prefix) {
			text = strings.TrimSpace(strings.TrimPrefix(text, prefix))
		}
	}

	if len(text) >= 2 {
		first, last := text[0], text[len(text)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			text = strings.TrimSpace(text[1 : len(text)-1])
		}
	}
	return text
}

const translateSystemPrompt = "You translate short jokes for a small display. Keep the humor and any wordplay where possible, keep it brief, and output only the translated text without quotes or explanations."

const translateUserPrompt = "Target language: {language}\nCategory: {category}\n\nJoke:\n{joke}"
