package translator

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"ltxtrans/internal/latex"
	"ltxtrans/internal/logger"
)

// PlaceholderConfig 占位符配置
type PlaceholderConfig struct {
	Prefix    string // 占位符前缀，默认 "<<<"
	Suffix    string // 占位符后缀，默认 ">>>"
	Separator string // 类型和编号分隔符，默认 "_"
}

// DefaultPlaceholderConfig 返回默认占位符配置
func DefaultPlaceholderConfig() *PlaceholderConfig {
	return &PlaceholderConfig{
		Prefix:    "<<<",
		Suffix:    ">>>",
		Separator: "_",
	}
}

// PlaceholderSystem 占位符系统，管理占位符的生成、存储和恢复
type PlaceholderSystem struct {
	config       *PlaceholderConfig
	order        []string
	placeholders map[string]string // placeholder -> original content
	counters     map[string]int
	pattern      *regexp.Regexp
	mu           sync.RWMutex
}

// NewPlaceholderSystem 创建新的占位符系统
func NewPlaceholderSystem() *PlaceholderSystem {
	return NewPlaceholderSystemWithConfig(DefaultPlaceholderConfig())
}

// NewPlaceholderSystemWithConfig 使用自定义配置创建占位符系统
func NewPlaceholderSystemWithConfig(config *PlaceholderConfig) *PlaceholderSystem {
	if config == nil {
		config = DefaultPlaceholderConfig()
	}
	return &PlaceholderSystem{
		config:       config,
		placeholders: make(map[string]string),
		counters:     make(map[string]int),
		pattern: regexp.MustCompile(regexp.QuoteMeta(config.Prefix) +
			`[A-Z]+` + regexp.QuoteMeta(config.Separator) + `\d+` + regexp.QuoteMeta(config.Suffix)),
	}
}

// GeneratePlaceholder 生成格式为 <<<TYPE_N>>> 的唯一占位符
func (ps *PlaceholderSystem) GeneratePlaceholder(typeName string) string {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	count := ps.counters[typeName]
	ps.counters[typeName] = count + 1
	return fmt.Sprintf("%s%s%s%d%s", ps.config.Prefix, typeName, ps.config.Separator, count, ps.config.Suffix)
}

// StorePlaceholder 存储占位符映射
func (ps *PlaceholderSystem) StorePlaceholder(placeholder string, original string) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if _, ok := ps.placeholders[placeholder]; !ok {
		ps.order = append(ps.order, placeholder)
	}
	ps.placeholders[placeholder] = original
}

// ProtectComments replaces every comment of content with a placeholder.
// The comment's line break stays in the text. Content that does not parse
// is returned unchanged.
func (ps *PlaceholderSystem) ProtectComments(content string) string {
	tree, err := latex.Parse(content)
	if err != nil {
		logger.Debug("fragment does not parse, comments left in place", logger.Err(err))
		return content
	}

	var comments []latex.NodeID
	tree.Walk(func(id latex.NodeID, _ int) bool {
		if tree.Node(id).Kind == latex.Comment {
			comments = append(comments, id)
		}
		return true
	})
	if len(comments) == 0 {
		return content
	}

	var sb strings.Builder
	last := 0
	for _, id := range comments {
		n := tree.Node(id)
		raw := tree.Raw(id)
		original := strings.TrimSuffix(raw, "\n")

		placeholder := ps.GeneratePlaceholder("COMMENT")
		ps.StorePlaceholder(placeholder, original)

		sb.WriteString(content[last:n.Start])
		sb.WriteString(placeholder)
		sb.WriteString(raw[len(original):])
		last = n.End
	}
	sb.WriteString(content[last:])
	return sb.String()
}

// Strip removes every placeholder from content.
func (ps *PlaceholderSystem) Strip(content string) string {
	return ps.pattern.ReplaceAllString(content, "")
}

// RestoreAll 恢复所有占位符. Placeholders missing from content are
// appended at its end, each on its own line, and returned.
func (ps *PlaceholderSystem) RestoreAll(content string) (string, []string) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	result := content
	var missing []string
	for _, placeholder := range ps.order {
		if !strings.Contains(result, placeholder) {
			missing = append(missing, placeholder)
			continue
		}
		result = strings.ReplaceAll(result, placeholder, ps.placeholders[placeholder])
	}

	for _, placeholder := range missing {
		if result != "" && !strings.HasSuffix(result, "\n") {
			result += "\n"
		}
		result += ps.placeholders[placeholder] + "\n"
	}
	return result, missing
}

// GetPlaceholderCount 获取占位符数量
func (ps *PlaceholderSystem) GetPlaceholderCount() int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.placeholders)
}
