package app

import (
	"context"
	"fmt"
	"log"

	"github.com/zhouzirui/jokebox/internal/config"
	"github.com/zhouzirui/jokebox/internal/display"
	"github.com/zhouzirui/jokebox/internal/metrics"
	"github.com/zhouzirui/jokebox/internal/model/joke"
	"github.com/zhouzirui/jokebox/internal/service/content"
	"github.com/zhouzirui/jokebox/internal/service/link"
	"github.com/zhouzirui/jokebox/internal/service/machine"
	"github.com/zhouzirui/jokebox/internal/service/relay"
	"github.com/zhouzirui/jokebox/internal/service/translate"
)

// Services 两个设备入口共用的服务集合。
type Services struct {
	Catalog    joke.Catalog
	Link       *link.Monitor
	Content    *content.Client
	Relay      *relay.Client
	Translator *translate.Service
	Metrics    *metrics.Metrics
}

// NewServices 按配置创建服务。翻译兜底初始化失败只记录警告。
func NewServices(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*Services, error) {
	monitor := link.NewMonitor(link.Options{
		ProbeAddr: cfg.Link.ProbeAddr,
		Interval:  cfg.Link.Interval,
	})

	contentClient := content.NewClient(content.Options{
		BaseURL: cfg.Content.BaseURL,
		Timeout: cfg.Content.Timeout,
		Metrics: m,
	})

	relayClient, err := relay.NewClient(relay.Options{
		WebhookURL:       cfg.Relay.WebhookURL,
		MaxAttempts:      cfg.Relay.MaxAttempts,
		RetryDelay:       cfg.Relay.RetryDelay,
		HandshakeTimeout: cfg.Relay.HandshakeTimeout,
		Metrics:          m,
	}, monitor, nil)
	if err != nil {
		return nil, fmt.Errorf("create relay client: %w", err)
	}
	if !relayClient.Enabled() {
		log.Println("RELAY_WEBHOOK_URL 未配置，翻译与评分提交将被跳过")
	}

	var translator *translate.Service
	if cfg.Translate.Enabled() {
		chatModel, err := cfg.Translate.NewChatModel(ctx)
		if err != nil {
			log.Printf("warning: failed to initialize translate model: %v", err)
		} else if translator, err = translate.NewService(ctx, chatModel, translate.Config{
			Enabled:        true,
			TargetLanguage: cfg.Translate.TargetLanguage,
		}); err != nil {
			log.Printf("warning: failed to initialize translate service: %v", err)
			translator = nil
		} else {
			log.Println("Translate fallback enabled")
		}
	} else if cfg.Translate.FallbackEnabled {
		log.Println("翻译兜底已开启但 Ark 凭证未配置，跳过")
	}

	return &Services{
		Catalog:    joke.NewMemoryCatalog(joke.Seed()),
		Link:       monitor,
		Content:    contentClient,
		Relay:      relayClient,
		Translator: translator,
		Metrics:    m,
	}, nil
}

// NewController 用服务组装控制器。
func (s *Services) NewController(d display.Display, cfg config.MachineConfig) *machine.Controller {
	deps := machine.Deps{
		Catalog: s.Catalog,
		Fetcher: s.Content,
		Relay:   s.Relay,
		Display: d,
		Metrics: s.Metrics,
	}
	if s.Translator.Enabled() {
		deps.Translator = s.Translator
	}

	return machine.NewController(deps, machine.Options{
		AckPause:  cfg.AckPause,
		BootPause: cfg.BootPause,
	})
}
