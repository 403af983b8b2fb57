package intent_test

import (
	"testing"

	"github.com/MrWong99/voicenav/internal/intent"
	"github.com/MrWong99/voicenav/pkg/command"
)

func TestParse_Unrecognized(t *testing.T) {
	t.Parallel()

	p := intent.New()
	for _, text := range []string{
		"",
		"   ",
		"\t\n",
		"clicar",
		"focar",
		"olá mundo",
		"rolar para o lado",
		"por favor clicar em enviar",
	} {
		if cmd, ok := p.Parse(text); ok {
			t.Errorf("Parse(%q) = %+v, want unrecognized", text, cmd)
		}
	}
}

func TestParse_Scroll(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want string
	}{
		{"rolar para cima", command.ScrollUp},
		{"rola para cima", command.ScrollUp},
		{"rolar para baixo", command.ScrollDown},
		{"rola para baixo", command.ScrollDown},
		{"  ROLAR PARA BAIXO  ", command.ScrollDown},
		{"agora rolar para cima por favor", command.ScrollUp},
	}

	p := intent.New()
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			t.Parallel()

			cmd, ok := p.Parse(tt.text)
			if !ok {
				t.Fatalf("Parse(%q): not recognized", tt.text)
			}
			if cmd.Action != command.Scroll {
				t.Errorf("Action = %v, want scroll", cmd.Action)
			}
			if cmd.Value != tt.want {
				t.Errorf("Value = %q, want %q", cmd.Value, tt.want)
			}
			if cmd.Target != "" {
				t.Errorf("Target = %q, want empty", cmd.Target)
			}
		})
	}
}

func TestParse_ScrollWinsOverOtherRules(t *testing.T) {
	t.Parallel()

	cmd, name, ok := intent.New().ParseRule("clicar em rolar para baixo")
	if !ok {
		t.Fatal("expected a match")
	}
	if name != "scroll" || cmd.Action != command.Scroll {
		t.Errorf("got rule %q action %v, want scroll", name, cmd.Action)
	}
}

func TestParse_Fill(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		text       string
		wantTarget string
		wantValue  string
	}{
		{"target and value", "preencher email com test@example.com", "email", "test@example.com"},
		{"upper case", "Preencher Nome com João", "nome", "joão"},
		{"value keeps later separators", "preencher mensagem com café com leite", "mensagem", "café com leite"},
		{"no value", "preencher email", "email", ""},
		{"verb only", "preencher", "", ""},
		{"trailing separator without value", "preencher email com", "email com", ""},
		{"surrounding spaces trimmed", "preencher   busca   com   sapatos  ", "busca", "sapatos"},
	}

	p := intent.New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cmd, ok := p.Parse(tt.text)
			if !ok {
				t.Fatalf("Parse(%q): not recognized", tt.text)
			}
			if cmd.Action != command.Fill {
				t.Errorf("Action = %v, want fill", cmd.Action)
			}
			if cmd.Target != tt.wantTarget {
				t.Errorf("Target = %q, want %q", cmd.Target, tt.wantTarget)
			}
			if cmd.Value != tt.wantValue {
				t.Errorf("Value = %q, want %q", cmd.Value, tt.wantValue)
			}
		})
	}
}

func TestParse_FillOnlyFirstSeparatorIsBoundary(t *testing.T) {
	t.Parallel()

	p := intent.New()
	targets := []string{"email", "campo de busca", "x"}
	values := [][2]string{{"a", "b"}, {"pão", "manteiga"}, {"1 2", "3"}}

	for _, target := range targets {
		for _, v := range values {
			text := "preencher " + target + " com " + v[0] + " com " + v[1]
			cmd, ok := p.Parse(text)
			if !ok {
				t.Fatalf("Parse(%q): not recognized", text)
			}
			if cmd.Target != target {
				t.Errorf("Parse(%q).Target = %q, want %q", text, cmd.Target, target)
			}
			if want := v[0] + " com " + v[1]; cmd.Value != want {
				t.Errorf("Parse(%q).Value = %q, want %q", text, cmd.Value, want)
			}
		}
	}
}

func TestParse_ClickAndFocus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text       string
		wantAction command.Action
		wantTarget string
	}{
		{"clicar em botão enviar", command.Click, "botão enviar"},
		{"clicar no menu", command.Click, "menu"},
		{"clicar na aba de configurações", command.Click, "aba de configurações"},
		{"Clicar Em   Entrar", command.Click, "entrar"},
		{"clicar em", command.Click, ""},
		{"focar em busca", command.Focus, "busca"},
		{"focar no campo nome", command.Focus, "campo nome"},
		{"focar na senha", command.Focus, "senha"},
		{"clicar em  dois  espaços", command.Click, "dois  espaços"},
	}

	p := intent.New()
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			t.Parallel()

			cmd, ok := p.Parse(tt.text)
			if !ok {
				t.Fatalf("Parse(%q): not recognized", tt.text)
			}
			if cmd.Action != tt.wantAction {
				t.Errorf("Action = %v, want %v", cmd.Action, tt.wantAction)
			}
			if cmd.Target != tt.wantTarget {
				t.Errorf("Target = %q, want %q", cmd.Target, tt.wantTarget)
			}
			if cmd.Value != "" {
				t.Errorf("Value = %q, want empty", cmd.Value)
			}
			if cmd.Element != nil {
				t.Error("parser must not resolve elements")
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	if got := intent.Normalize("  Clicar EM Botão  "); got != "clicar em botão" {
		t.Errorf("Normalize = %q", got)
	}
}
