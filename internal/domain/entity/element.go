package entity

import "strings"

// ElementType 手稿结构单元类型，层级严格递增
type ElementType string

const (
	ElementPartie       ElementType = "partie"
	ElementChapitre     ElementType = "chapitre"
	ElementSousChapitre ElementType = "sous-chapitre"
	ElementSection      ElementType = "section"
)

// DefaultElementType 未声明类型的文档按章处理
const DefaultElementType = ElementChapitre

var elementLevels = map[ElementType]int{
	ElementPartie:       1,
	ElementChapitre:     2,
	ElementSousChapitre: 3,
	ElementSection:      4,
}

var elementLabels = map[ElementType]string{
	ElementPartie:       "Partie",
	ElementChapitre:     "Chapitre",
	ElementSousChapitre: "Sous-chapitre",
	ElementSection:      "Section",
}

// ParseElementType 解析元素类型，大小写与下划线不敏感
func ParseElementType(s string) (ElementType, bool) {
	t := ElementType(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-"))
	_, ok := elementLevels[t]
	return t, ok
}

// Level 层级深度，1 为最浅
func (t ElementType) Level() int {
	return elementLevels[t]
}

// Label 默认显示名
func (t ElementType) Label() string {
	return elementLabels[t]
}

// CanContain 子元素层级必须严格深于父元素
func (t ElementType) CanContain(child ElementType) bool {
	p, ok1 := elementLevels[t]
	c, ok2 := elementLevels[child]
	return ok1 && ok2 && c > p
}

// ElementOf 从文档 metadata 解析元素类型与显示名，缺失时使用默认值
func ElementOf(d *Document) (ElementType, string) {
	t, ok := ParseElementType(d.MetaString(MetaElementType))
	if !ok {
		t = DefaultElementType
	}
	label := strings.TrimSpace(d.MetaString(MetaElementLabel))
	if label == "" {
		label = t.Label()
	}
	return t, label
}
