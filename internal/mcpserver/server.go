// Package mcpserver exposes a navigator session as a Model Context Protocol
// server, so an agent can drive the page with the same pt-BR utterances a
// speaker would use.
//
// Tools:
//
//   - voice_command{utterance}: resolves and executes one utterance.
//   - restart_listening{}: starts a new listening session.
//   - find_elements{description}: lists matching elements without acting.
//
// The server is usually served over stdio by "voicenav mcp".
package mcpserver

import (
	"context"
	"errors"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/MrWong99/voicenav/internal/finder"
	"github.com/MrWong99/voicenav/internal/navigator"
	"github.com/MrWong99/voicenav/internal/observe"
)

// Tool names.
const (
	ToolVoiceCommand     = "voice_command"
	ToolRestartListening = "restart_listening"
	ToolFindElements     = "find_elements"
)

// ErrEmptyUtterance is returned by voice_command when the utterance is blank.
var ErrEmptyUtterance = errors.New("mcpserver: utterance must not be empty")

// Session is the navigator surface the server drives.
// [*navigator.Navigator] implements it.
type Session interface {
	Handle(ctx context.Context, utterance string) (navigator.Outcome, error)
	SetListening(ctx context.Context, active bool) error
	Find(ctx context.Context, description string) ([]finder.Scored, error)
}

// VoiceCommandInput is the argument of voice_command.
type VoiceCommandInput struct {
	Utterance string `json:"utterance" jsonschema:"the spoken pt-BR command, e.g. clicar em enviar or a number while a choice is pending"`
}

// RestartListeningInput is the (empty) argument of restart_listening.
type RestartListeningInput struct{}

// RestartListeningOutput reports the session state after a restart.
type RestartListeningOutput struct {
	Listening bool `json:"listening"`
}

// FindElementsInput is the argument of find_elements.
type FindElementsInput struct {
	Description string `json:"description" jsonschema:"the element description as it would be spoken, e.g. campo de e-mail"`
}

// Match is one scored element in a find_elements result.
type Match struct {
	Ref   string  `json:"ref"`
	Kind  string  `json:"kind"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// FindElementsOutput lists matches best first.
type FindElementsOutput struct {
	Matches []Match `json:"matches"`
}

// Option configures a [Server].
type Option func(*Server)

// WithVersion sets the version advertised during initialization.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// Server is an MCP server bound to one navigator session.
type Server struct {
	session Session
	version string
	mcp     *mcpsdk.Server
}

// New builds a Server with all tools registered.
func New(session Session, opts ...Option) *Server {
	s := &Server{session: session, version: "dev"}
	for _, o := range opts {
		o(s)
	}

	s.mcp = mcpsdk.NewServer(&mcpsdk.Implementation{Name: "voicenav", Version: s.version}, nil)

	mcpsdk.AddTool(s.mcp, &mcpsdk.Tool{
		Name:        ToolVoiceCommand,
		Description: "Executa um comando de voz em português (clicar, focar, preencher, rolar) na página aberta. Se houver mais de um elemento, responda com o número do candidato.",
	}, s.voiceCommand)

	mcpsdk.AddTool(s.mcp, &mcpsdk.Tool{
		Name:        ToolRestartListening,
		Description: "Reinicia a escuta e descarta qualquer escolha pendente.",
	}, s.restartListening)

	mcpsdk.AddTool(s.mcp, &mcpsdk.Tool{
		Name:        ToolFindElements,
		Description: "Lista os elementos da página que correspondem à descrição, sem executar nenhuma ação.",
	}, s.findElements)

	return s
}

// MCP returns the underlying SDK server, e.g. for in-memory transports.
func (s *Server) MCP() *mcpsdk.Server {
	return s.mcp
}

// Run serves on t until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context, t mcpsdk.Transport) error {
	if err := s.mcp.Run(ctx, t); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("mcpserver: run: %w", err)
	}
	return nil
}

// ServeStdio serves on the process's stdin and stdout.
func (s *Server) ServeStdio(ctx context.Context) error {
	return s.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) voiceCommand(ctx context.Context, _ *mcpsdk.CallToolRequest, in VoiceCommandInput) (*mcpsdk.CallToolResult, navigator.Summary, error) {
	if in.Utterance == "" {
		return nil, navigator.Summary{}, ErrEmptyUtterance
	}
	out, err := s.session.Handle(ctx, in.Utterance)
	if err != nil {
		observe.Logger(ctx).Warn("mcpserver: voice_command", "err", err)
		return nil, navigator.Summary{}, fmt.Errorf("mcpserver: voice_command: %w", err)
	}
	return nil, out.Summary(), nil
}

func (s *Server) restartListening(ctx context.Context, _ *mcpsdk.CallToolRequest, _ RestartListeningInput) (*mcpsdk.CallToolResult, RestartListeningOutput, error) {
	if err := s.session.SetListening(ctx, true); err != nil {
		return nil, RestartListeningOutput{}, fmt.Errorf("mcpserver: restart_listening: %w", err)
	}
	return nil, RestartListeningOutput{Listening: true}, nil
}

func (s *Server) findElements(ctx context.Context, _ *mcpsdk.CallToolRequest, in FindElementsInput) (*mcpsdk.CallToolResult, FindElementsOutput, error) {
	results, err := s.session.Find(ctx, in.Description)
	if err != nil {
		return nil, FindElementsOutput{}, fmt.Errorf("mcpserver: find_elements: %w", err)
	}
	out := FindElementsOutput{Matches: make([]Match, 0, len(results))}
	for _, r := range results {
		out.Matches = append(out.Matches, Match{
			Ref:   r.Element.Ref,
			Kind:  string(r.Element.Kind),
			Text:  r.Element.Text(),
			Score: r.Score,
		})
	}
	return nil, out, nil
}
