package docs

// @title CineReads API
// @version 1.0
// @description 根据电影口味推荐书籍：调用大模型生成候选书目，再用 Hardcover 书目库补充元数据，结果按电影列表和偏好缓存
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url http://www.swagger.io/support
// @contact.email support@swagger.io

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8000
// @BasePath /
// @schemes http https
