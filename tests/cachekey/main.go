// cachekey 读取标准输入中的推荐请求，打印其缓存指纹和文件缓存路径，便于定位或删除单条缓存
//
//	echo '{"movies":["Interstellar"],"preferences":{"mood":"serious"}}' | go run ./tests/cachekey
//	go run ./tests/cachekey -key book_v3:0f3c...
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/goccy/go-json"

	"cinereads/cache"
	"cinereads/config"
	"cinereads/models"
	"cinereads/services"
)

func main() {
	cacheType := flag.String("type", models.CacheTypeRecommendations, "缓存类型: recommendations 或 taste_profiles")
	dir := flag.String("dir", "", "缓存目录，默认读取配置中的 CACHE_DIR")
	existing := flag.String("key", "", "已知的缓存指纹，直接打印其文件路径")
	recType := flag.String("mode", models.RecommendationTypeIndividual, "推荐方式: individual 或 unified")
	flag.Parse()

	// 与服务端使用同一套配置（.env、config.yaml、环境变量）
	cfg := config.Load()
	if *dir == "" {
		*dir = cfg.Cache.Dir
	}

	if *existing != "" {
		t := cache.TypeForKey(*existing)
		if t == "" {
			log.Fatalf("无法识别的缓存指纹: %s", *existing)
		}
		fmt.Printf("缓存类型: %s\n", t)
		fmt.Printf("文件路径: %s\n", cache.EntryPath(*dir, t, *existing))
		return
	}

	body, err := io.ReadAll(os.Stdin)
	if err != nil {
		log.Fatalf("读取标准输入失败: %v", err)
	}
	var req models.RecommendationRequest
	if err := json.Unmarshal(body, &req); err != nil {
		log.Fatalf("解析请求失败: %v", err)
	}
	// 按服务端规则规范化，保证指纹一致
	if err := services.ValidateRequest(&req, 0); err != nil {
		log.Fatalf("请求不合法: %v", err)
	}

	var key string
	switch *cacheType {
	case models.CacheTypeRecommendations:
		if !models.IsRecommendationType(*recType) {
			log.Fatalf("不支持的推荐方式: %s", *recType)
		}
		key = cache.RecommendationKeyFor(*recType, req.Movies, req.Preferences)
	case models.CacheTypeTasteProfiles:
		key = cache.TasteProfileKey(req.Movies, req.Preferences)
	default:
		log.Fatalf("不支持的缓存类型: %s", *cacheType)
	}

	fmt.Printf("缓存类型: %s\n", *cacheType)
	fmt.Printf("缓存指纹: %s\n", key)
	fmt.Printf("文件路径: %s\n", cache.EntryPath(*dir, *cacheType, key))
}
