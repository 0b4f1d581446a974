package telegram

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"genecross/api/internal/archive"
	"genecross/api/internal/cross"
	"genecross/api/internal/gene"
	"genecross/api/internal/rows"
	"genecross/api/internal/submit"
	"genecross/api/internal/util"
)

const (
	maxText          = 3900
	maxDetailButtons = 40
)

func kindCode(k rows.Kind) string {
	if k == rows.Targets {
		return "t"
	}
	return "p"
}

func sexIcon(tokens []string) string {
	if len(tokens) == 0 {
		return ""
	}
	switch gene.Sex(tokens[0]) {
	case gene.Male:
		return "♂ "
	case gene.Female:
		return "♀ "
	}
	return ""
}

func tokens(t []string) string {
	if t == nil {
		return "?"
	}
	return sexIcon(t) + strings.Join(t, " ")
}

// editorText lists both collections of the snapshot.
func editorText(snap rows.Snapshot) string {
	var b strings.Builder
	if snap.Mode == rows.ModeText {
		b.WriteString("🧬 Cross editor (free text)\n")
		b.WriteString("Rows are comma separated: sex, A, B, C. Tap ✏️ to rewrite a row.\n")
	} else {
		b.WriteString("🧬 Cross editor\n")
		b.WriteString("Tap a value to cycle it.\n")
	}
	section := func(title string, rs []rows.Row) {
		fmt.Fprintf(&b, "\n%s (%d)\n", title, len(rs))
		if len(rs) == 0 {
			b.WriteString("  none\n")
		}
		for i, row := range rs {
			if snap.Mode == rows.ModeText {
				raw := row.Raw
				if strings.TrimSpace(raw) == "" {
					raw = "(empty)"
				}
				fmt.Fprintf(&b, "%d. %s\n", i+1, raw)
				continue
			}
			fmt.Fprintf(&b, "%d. %s\n", i+1, tokens(row.Spec.Tuple()))
		}
	}
	section("Parents", snap.Parents)
	section("Targets", snap.Targets)
	return util.Truncate(b.String(), maxText)
}

// editorKeyboard has one button row per editor row plus the add and submit rows.
// Buttons carry stable row ids, resolved to positions when pressed.
func editorKeyboard(snap rows.Snapshot) tgbotapi.InlineKeyboardMarkup {
	var kb [][]tgbotapi.InlineKeyboardButton
	section := func(k rows.Kind, label string, rs []rows.Row) {
		kb = append(kb, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(label, "noop")))
		kc := kindCode(k)
		for i, row := range rs {
			remove := tgbotapi.NewInlineKeyboardButtonData("✖", fmt.Sprintf("r:%s:%d", kc, row.ID))
			if snap.Mode == rows.ModeText {
				edit := tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("✏️ %d", i+1), fmt.Sprintf("e:%s:%d", kc, row.ID))
				kb = append(kb, tgbotapi.NewInlineKeyboardRow(edit, remove))
				continue
			}
			btns := []tgbotapi.InlineKeyboardButton{
				tgbotapi.NewInlineKeyboardButtonData(sexIcon(row.Spec.Tuple())+string(row.Spec.Sex),
					fmt.Sprintf("c:%s:%d:%d", kc, row.ID, gene.FieldSex)),
			}
			for l := 0; l < gene.LociCount; l++ {
				btns = append(btns, tgbotapi.NewInlineKeyboardButtonData(row.Spec.Genes[l],
					fmt.Sprintf("c:%s:%d:%d", kc, row.ID, l)))
			}
			kb = append(kb, append(btns, remove))
		}
	}
	section(rows.Parents, "Parents", snap.Parents)
	section(rows.Targets, "Targets", snap.Targets)
	kb = append(kb,
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("➕ Parent", "a:p"),
			tgbotapi.NewInlineKeyboardButtonData("➕ Target", "a:t"),
		),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🧮 Calculate", "s")),
	)
	return tgbotapi.NewInlineKeyboardMarkup(kb...)
}

// resultsText renders the published view: pending notice, error or ranked list.
// Fractions are shown exactly as received.
func resultsText(v submit.View) string {
	switch v.State {
	case submit.Pending:
		return "⏳ Calculating…"
	case submit.Failed:
		return "❌ " + v.Error
	case submit.Idle:
		return "Results cleared."
	}
	if len(v.Results) == 0 {
		return "No parent pair produced a result."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "✅ %d result(s), most likely first\n", len(v.Results))
	for i, res := range v.Results {
		fmt.Fprintf(&b, "\n%d. %s × %s\n   total: %s\n", i+1, tokens(res.Father), tokens(res.Mother), res.Sum)
		if v.IsExpanded(i) {
			writeChildren(&b, res.Childs)
		}
	}
	return util.Truncate(b.String(), maxText)
}

// exportText renders a saved document with every entry expanded.
func exportText(doc archive.Document) string {
	v := submit.View{State: submit.Success, Results: doc.Results, Expanded: make([]bool, len(doc.Results))}
	for i := range v.Expanded {
		v.Expanded[i] = true
	}
	head := fmt.Sprintf("📄 Export from %s [%s]\n\n", doc.ExportedAt.Local().Format("2006-01-02 15:04"), doc.Mode)
	return util.Truncate(head+resultsText(v), maxText)
}

func writeChildren(b *strings.Builder, cs []cross.Child) {
	if len(cs) == 0 {
		b.WriteString("   no children listed\n")
		return
	}
	for _, c := range cs {
		fmt.Fprintf(b, "   • %s  %s\n", strings.Join(c.Gene, " "), c.Prob)
	}
}

// resultsKeyboard holds one show/hide toggle per ranked entry, tagged with the
// generation of the list it belongs to.
func resultsKeyboard(v submit.View) *tgbotapi.InlineKeyboardMarkup {
	if v.State != submit.Success || len(v.Results) == 0 {
		return nil
	}
	n := len(v.Results)
	if n > maxDetailButtons {
		n = maxDetailButtons
	}
	var kb [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for i := 0; i < n; i++ {
		label := fmt.Sprintf("%d ▸ details", i+1)
		if v.IsExpanded(i) {
			label = fmt.Sprintf("%d ▾ hide", i+1)
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("x:%d:%d", v.Generation, i)))
		if len(row) == 3 {
			kb = append(kb, row)
			row = nil
		}
	}
	if len(row) > 0 {
		kb = append(kb, row)
	}
	m := tgbotapi.NewInlineKeyboardMarkup(kb...)
	return &m
}

const helpText = `Genetic cross calculator.

Describe parents (sex plus genotype at loci A, B, C) and target genotypes, then press Calculate. Results are ranked by the total probability of matching a target.

/start - open the editor
/mode structured|text - switch editor (resets rows)
/reset - restore default rows
/submit - calculate
/history - recent calculations
/export - save the current results
/exports [N] - list saved exports or open one
/health - check the bot`
