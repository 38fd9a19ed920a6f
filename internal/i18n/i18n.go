// internal/i18n/i18n.go
//
// Two static language bundles (English and Japanese) for UI chrome and
// validation messages. Question labels carry their own translations in
// the catalog; this package only covers everything around them.

package i18n

import "specsmith/internal/catalog"

// Language selects one of the two shipped bundles.
type Language string

const (
	LangEN Language = "en"
	LangJA Language = "ja"
)

// Bundle resolves message keys for one language.
type Bundle struct {
	lang     Language
	messages map[string]string
	fallback map[string]string
}

// ForLanguage returns the bundle for the given language, defaulting to
// English for anything unrecognized.
func ForLanguage(lang Language) *Bundle {
	if lang == LangJA {
		return &Bundle{lang: LangJA, messages: ja, fallback: en}
	}
	return &Bundle{lang: LangEN, messages: en, fallback: ja}
}

// Language returns the bundle's language tag.
func (b *Bundle) Language() Language {
	return b.lang
}

// T resolves a message key: own bundle, then the other bundle, then the
// key itself so a missing translation is visible rather than blank.
func (b *Bundle) T(key string) string {
	if msg, ok := b.messages[key]; ok {
		return msg
	}
	if msg, ok := b.fallback[key]; ok {
		return msg
	}
	return key
}

// Label picks the localized label text for a question.
func (b *Bundle) Label(q catalog.QuestionDefinition) string {
	return b.pick(q.Label)
}

// Help picks the localized help text for a question.
func (b *Bundle) Help(q catalog.QuestionDefinition) string {
	return b.pick(q.Help)
}

func (b *Bundle) pick(t catalog.Text) string {
	if b.lang == LangJA && t.JA != "" {
		return t.JA
	}
	if t.EN != "" {
		return t.EN
	}
	return t.JA
}

var en = map[string]string{
	"error.required":   "This question is required.",
	"error.length":     "The answer length is outside the allowed range.",
	"error.choice":     "Pick from the listed options.",
	"error.dependency": "Answer the earlier related question first.",

	"warn.pii":        "This answer may contain personal information.",
	"warn.no_persist": "Saving failed — continuing without persistence.",

	"status.saved":      "Draft saved",
	"status.generating": "Generating output...",

	"nav.advance": "enter: next",
	"nav.retreat": "esc: back",
	"nav.save":    "ctrl+s: save",
	"nav.reset":   "ctrl+r: reset",
	"nav.quit":    "ctrl+c: quit",

	"result.copy":     "c: copy command",
	"result.download": "s: save files",
	"result.copied":   "Command copied to clipboard",
	"result.written":  "Artifacts written to",

	"welcome.title":  "Requirements Hearing",
	"welcome.new":    "Start a new hearing",
	"welcome.resume": "Resume a draft",

	"review.title":    "Review your answers",
	"review.complete": "enter: finalize and generate",
	"review.missing":  "unanswered",

	"layer.1": "Purpose / Goals",
	"layer.2": "Process / Stakeholders",
	"layer.3": "Technology / Integration",
}

var ja = map[string]string{
	"error.required":   "この質問は必須です。",
	"error.length":     "回答の文字数が範囲外です。",
	"error.choice":     "選択肢の中から選んでください。",
	"error.dependency": "先に関連する質問に回答してください。",

	"warn.pii":        "この回答には個人情報が含まれている可能性があります。",
	"warn.no_persist": "保存に失敗しました。保存なしで続行します。",

	"status.saved":      "下書きを保存しました",
	"status.generating": "出力を生成しています...",

	"nav.advance": "enter: 次へ",
	"nav.retreat": "esc: 戻る",
	"nav.save":    "ctrl+s: 保存",
	"nav.reset":   "ctrl+r: リセット",
	"nav.quit":    "ctrl+c: 終了",

	"result.copy":     "c: コマンドをコピー",
	"result.download": "s: ファイルに保存",
	"result.copied":   "コマンドをクリップボードにコピーしました",
	"result.written":  "出力を書き出しました:",

	"welcome.title":  "要件ヒアリング",
	"welcome.new":    "新しいヒアリングを開始",
	"welcome.resume": "下書きを再開",

	"review.title":    "回答の確認",
	"review.complete": "enter: 確定して生成",
	"review.missing":  "未回答",

	"layer.1": "目的・ゴール",
	"layer.2": "業務プロセス・関係者",
	"layer.3": "技術・連携",
}
