package workingmem

import (
	"regexp"
	"strings"
)

var (
	// filePathPattern 文件路径：至少包含一个扩展名，可带目录
	filePathPattern = regexp.MustCompile(`[\w./\\-]+\.(go|ts|tsx|js|jsx|py|rs|java|rb|c|h|cpp|hpp|sql|proto|yaml|yml|json|toml|md)\b`)
	// codeSymbolPattern 反引号包裹的代码符号
	codeSymbolPattern = regexp.MustCompile("`([^`\n]+)`")
	// identifierPattern CamelCase 或 snake_case 标识符（至少两段）
	identifierPattern = regexp.MustCompile(`\b([a-z]+[A-Z]\w+|[A-Z]\w+[A-Z]\w*|[a-z]+_[a-z_]+)\b`)
)

// ExtractEntities 从轮次内容中提取实体引用
// 提取文件路径、反引号代码符号和复合标识符，去重后返回
func ExtractEntities(content string) []string {
	seen := make(map[string]bool)
	entities := make([]string, 0)

	add := func(e string) {
		e = strings.TrimSpace(e)
		if e == "" || seen[e] {
			return
		}
		seen[e] = true
		entities = append(entities, e)
	}

	for _, m := range filePathPattern.FindAllString(content, -1) {
		add(m)
	}

	for _, m := range codeSymbolPattern.FindAllStringSubmatch(content, -1) {
		// 反引号内容太长的当作代码块而不是符号
		if len(m[1]) <= 64 {
			add(m[1])
		}
	}

	for _, m := range identifierPattern.FindAllString(content, -1) {
		add(m)
	}

	return entities
}
