// Package agent 提供面向写作的专家代理：按 kind/action 查表组装提示词并调用模型
package agent

// Kind 代理类型
type Kind string

const (
	KindNarrativeArchitect Kind = "narrative_architect"
	KindCharacterManager   Kind = "character_manager"
	KindStyleExpert        Kind = "style_expert"
	KindDialogueMaster     Kind = "dialogue_master"
)

// action 单个动作的提示词字段、采样温度与结果键
type action struct {
	name        string
	fields      []string
	defaults    map[string]any
	temperature float32
	resultKey   string
}

type definition struct {
	kind          Kind
	name          string
	description   string
	defaultAction string
	actions       []action
}

func (d *definition) action(name string) (*action, bool) {
	for i := range d.actions {
		if d.actions[i].name == name {
			return &d.actions[i], true
		}
	}
	return nil, false
}

var catalog = []definition{
	{
		kind:          KindNarrativeArchitect,
		name:          "Architecte Narratif",
		description:   "Analyse et structure la narration globale de votre histoire",
		defaultAction: "analyze_structure",
		actions: []action{
			{name: "analyze_structure", fields: []string{"story_outline", "current_structure"}, temperature: 0.7, resultKey: "analysis"},
			{name: "suggest_structure", fields: []string{"genre", "story_concept"}, temperature: 0.8, resultKey: "suggestions"},
		},
	},
	{
		kind:          KindCharacterManager,
		name:          "Gestionnaire de Personnages",
		description:   "Développe et maintient la cohérence de vos personnages",
		defaultAction: "create_character",
		actions: []action{
			{name: "create_character", fields: []string{"story_context", "role"}, defaults: map[string]any{"role": "supporting"}, temperature: 0.9, resultKey: "character"},
			{name: "analyze_consistency", fields: []string{"character_name", "character_profile", "scenes"}, temperature: 0.6, resultKey: "analysis"},
			{name: "develop_relationship", fields: []string{"character_1", "character_2"}, temperature: 0.8, resultKey: "relationship"},
		},
	},
	{
		kind:          KindStyleExpert,
		name:          "Expert Stylistique",
		description:   "Améliore la qualité littéraire et le style de votre écriture",
		defaultAction: "analyze_style",
		actions: []action{
			{name: "analyze_style", fields: []string{"text"}, temperature: 0.7, resultKey: "analysis"},
			{name: "improve_passage", fields: []string{"focus", "text"}, defaults: map[string]any{"focus": "general"}, temperature: 0.8, resultKey: "improved_text"},
			{name: "check_consistency", fields: []string{"text_samples"}, temperature: 0.6, resultKey: "consistency_report"},
		},
	},
	{
		kind:          KindDialogueMaster,
		name:          "Maître des Dialogues",
		description:   "Crée et améliore l'authenticité de vos dialogues",
		defaultAction: "create_dialogue",
		actions: []action{
			{name: "create_dialogue", fields: []string{"characters", "situation", "emotional_tone"}, defaults: map[string]any{"emotional_tone": "neutre"}, temperature: 0.9, resultKey: "dialogue"},
			{name: "improve_dialogue", fields: []string{"issues", "dialogue"}, defaults: map[string]any{"issues": "général"}, temperature: 0.8, resultKey: "improved_dialogue"},
			{name: "analyze_voice", fields: []string{"character_name", "dialogue_samples"}, temperature: 0.6, resultKey: "voice_analysis"},
		},
	},
}

func lookup(kind Kind) (*definition, bool) {
	for i := range catalog {
		if catalog[i].kind == kind {
			return &catalog[i], true
		}
	}
	return nil, false
}
