package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestElementHierarchy(t *testing.T) {
	assert.True(t, ElementPartie.CanContain(ElementChapitre))
	assert.True(t, ElementPartie.CanContain(ElementSection))
	assert.True(t, ElementChapitre.CanContain(ElementSousChapitre))
	assert.False(t, ElementChapitre.CanContain(ElementChapitre))
	assert.False(t, ElementSection.CanContain(ElementPartie))
	assert.False(t, ElementType("tome").CanContain(ElementSection))
}

func TestParseElementType(t *testing.T) {
	got, ok := ParseElementType(" Sous_Chapitre ")
	assert.True(t, ok)
	assert.Equal(t, ElementSousChapitre, got)

	_, ok = ParseElementType("volume")
	assert.False(t, ok)
}

func TestElementOfDefaults(t *testing.T) {
	d := NewDocument("p", "Titre", "", DocumentTypeChapter, 0)
	typ, label := ElementOf(d)
	assert.Equal(t, ElementChapitre, typ)
	assert.Equal(t, "Chapitre", label)

	d.Metadata[MetaElementType] = "section"
	d.Metadata[MetaElementLabel] = "Scène du bal"
	typ, label = ElementOf(d)
	assert.Equal(t, ElementSection, typ)
	assert.Equal(t, "Scène du bal", label)
}

func TestProjectInstructionsSkipsIncomplete(t *testing.T) {
	p := NewProject("owner", "Roman")
	p.Metadata[ProjectMetaInstructions] = []any{
		map[string]any{"title": "Ton", "detail": "sobre"},
		map[string]any{"title": "Sans détail"},
		"garbage",
	}
	p.Metadata[ProjectMetaConstraints] = map[string]any{"pov": "first"}

	ins := p.Instructions()
	assert.Len(t, ins, 1)
	assert.Equal(t, "Ton", ins[0].Title)
	assert.Equal(t, "first", p.Constraints()["pov"])
}
