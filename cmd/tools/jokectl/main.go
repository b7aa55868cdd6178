package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/jokebox/internal/config"
	"github.com/zhouzirui/jokebox/internal/model/joke"
	relaymodel "github.com/zhouzirui/jokebox/internal/model/relay"
	"github.com/zhouzirui/jokebox/internal/service/content"
	"github.com/zhouzirui/jokebox/internal/service/link"
	"github.com/zhouzirui/jokebox/internal/service/relay"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] 无法加载 .env，改用系统环境变量: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("配置加载失败: %v", err)
	}

	mode := flag.String("mode", "", "测试模式: fetch 或 relay")
	rawCategory := flag.String("category", string(joke.Any), "笑话分类，例如 Pun 或 Programming")
	rating := flag.Int("rating", 0, "relay 模式下的评分 (1-5)，0 表示请求翻译")
	text := flag.String("text", "", "relay 模式的笑话文本，留空则先获取一条")
	timeout := flag.Duration("timeout", 45*time.Second, "整体超时时间")

	flag.Parse()

	if *mode != "fetch" && *mode != "relay" {
		flag.Usage()
		log.Fatal("请通过 -mode=fetch 或 -mode=relay 指定测试模式")
	}

	category, ok := joke.ParseCategory(*rawCategory)
	if !ok {
		log.Fatalf("未知分类: %s", *rawCategory)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	contentClient := content.NewClient(content.Options{
		BaseURL: cfg.Content.BaseURL,
		Timeout: cfg.Content.Timeout,
	})

	switch *mode {
	case "fetch":
		runFetch(ctx, contentClient, category)
	case "relay":
		if !cfg.Relay.Enabled() {
			log.Fatal("RELAY_WEBHOOK_URL 未配置")
		}
		body := strings.TrimSpace(*text)
		if body == "" {
			item, err := contentClient.Fetch(ctx, category)
			if err != nil {
				log.Fatalf("获取笑话失败: %v", err)
			}
			body = item.Body
			log.Printf("[fetch] %s", body)
		}
		runRelay(ctx, cfg.Relay, category, body, *rating)
	}
}

func runFetch(ctx context.Context, client *content.Client, category joke.Category) {
	start := time.Now()
	item, err := client.Fetch(ctx, category)
	if err != nil {
		log.Printf("[fetch] 失败 (%s): %v", time.Since(start).Round(time.Millisecond), err)
		fmt.Println(item.Body)
		os.Exit(1)
	}

	log.Printf("[fetch] 完成 category=%s kind=%s 耗时=%s", item.Category, item.Kind, time.Since(start).Round(time.Millisecond))
	printJSON(item)
}

func runRelay(ctx context.Context, relayCfg config.RelayConfig, category joke.Category, body string, rating int) {
	client, err := relay.NewClient(relay.Options{
		WebhookURL:       relayCfg.WebhookURL,
		MaxAttempts:      relayCfg.MaxAttempts,
		RetryDelay:       relayCfg.RetryDelay,
		HandshakeTimeout: relayCfg.HandshakeTimeout,
	}, link.Static(true), nil)
	if err != nil {
		log.Fatalf("创建 relay 客户端失败: %v", err)
	}

	mode := relaymodel.Transform
	if rating != 0 {
		mode = relaymodel.Rate
	}

	start := time.Now()
	outcome := client.Relay(ctx, mode, category, body, rating)
	log.Printf("[relay] mode=%s attempts=%d 耗时=%s", mode, outcome.Attempts, time.Since(start).Round(time.Millisecond))
	printJSON(outcome)
	if !outcome.Succeeded {
		if outcome.Err != nil {
			log.Printf("[relay] error: %v", outcome.Err)
		}
		os.Exit(1)
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		log.Printf("输出结果失败: %v", err)
	}
}
