package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

// 并发给同一篇文章 +1 浏览：
// 同一 IP 在窗口内只应有 limit 个请求成功，且浏览数增量与成功数一致
func main() {
	var (
		baseURL = flag.String("url", "http://localhost:8080", "server base URL")
		slug    = flag.String("slug", "stress-test", "post slug")
		total   = flag.Int("n", 200, "concurrent requests")
		limit   = flag.Int("limit", 10, "expected requests allowed per window")
	)
	flag.Parse()

	client := resty.New().
		SetBaseURL(*baseURL).
		SetTimeout(10 * time.Second)

	before, err := currentViews(client, *slug)
	if err != nil {
		fmt.Printf("读取浏览数失败: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("开始压测：%d 个并发请求给 %q 增加浏览数...\n", *total, *slug)
	// 等待上一个窗口过期
	time.Sleep(10 * time.Second)

	var (
		wg                  sync.WaitGroup
		mu                  sync.Mutex
		ok, limited, failed int
	)
	start := time.Now()

	for i := 0; i < *total; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := client.R().
				SetBody(map[string]string{"slug": *slug}).
				Post("/api/views")

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				failed++
			case resp.StatusCode() == http.StatusOK:
				ok++
			case resp.StatusCode() == http.StatusTooManyRequests:
				limited++
			default:
				failed++
			}
		}()
	}
	wg.Wait()
	duration := time.Since(start)

	time.Sleep(10 * time.Second)
	after, err := currentViews(client, *slug)
	if err != nil {
		fmt.Printf("读取浏览数失败: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("--------------------------------------------------")
	fmt.Printf("压测结束，耗时: %v\n", duration)
	fmt.Printf("QPS: %.2f\n", float64(*total)/duration.Seconds())
	fmt.Printf("成功: %d (预期: %d)\n", ok, *limit)
	fmt.Printf("被限流: %d\n", limited)
	fmt.Printf("失败: %d\n", failed)
	fmt.Printf("浏览数增量: %d\n", after-before)
	fmt.Println("--------------------------------------------------")

	if ok != *limit || after-before != int64(ok) {
		os.Exit(1)
	}
}

type viewsResponse struct {
	Code int `json:"code"`
	Data struct {
		Views int64 `json:"views"`
	} `json:"data"`
}

// currentViews 文章从未被浏览过时返回 0
func currentViews(client *resty.Client, slug string) (int64, error) {
	var out viewsResponse
	resp, err := client.R().
		SetQueryParam("slug", slug).
		SetResult(&out).
		Get("/api/views")
	if err != nil {
		return 0, err
	}
	switch resp.StatusCode() {
	case http.StatusOK:
		return out.Data.Views, nil
	case http.StatusNotFound:
		return 0, nil
	default:
		return 0, fmt.Errorf("unexpected status %d", resp.StatusCode())
	}
}
