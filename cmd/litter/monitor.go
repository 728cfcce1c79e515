package main

import (
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mrjvadi/litter/broker"
)

func newMonitorCmd(g *globalFlags) *cobra.Command {
	var (
		exclude  []string
		truncate int
	)
	cmd := &cobra.Command{
		Use:   "monitor [pattern...]",
		Short: "Print every envelope seen on matching channels",
		Long:  "Subscribe to the given patterns (all channels by default) and print each envelope until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			patterns := args
			if len(patterns) == 0 {
				patterns = []string{"*"}
			}
			for _, p := range exclude {
				if _, err := path.Match(p, ""); err != nil {
					return fmt.Errorf("exclude %q: %w", p, err)
				}
			}

			app, done, err := connect(cmd.Context(), g, "litter-monitor")
			if err != nil {
				return err
			}
			defer done()

			m := &monitor{out: cmd.OutOrStdout(), log: app.Logger(), exclude: exclude, truncate: truncate}
			app.Subscribe(m.handle, patterns...)
			return app.Listen(cmd.Context())
		},
	}
	cmd.Flags().StringSliceVarP(&exclude, "exclude", "x", nil, "channel globs to skip")
	cmd.Flags().IntVar(&truncate, "truncate", 4000, "truncate each printed envelope to this many bytes (0 disables)")
	return cmd
}

type monitor struct {
	mu       sync.Mutex
	out      io.Writer
	log      *zap.Logger
	exclude  []string
	truncate int
}

func (m *monitor) excluded(channel string) bool {
	for _, p := range m.exclude {
		if ok, _ := path.Match(p, channel); ok {
			return true
		}
	}
	return false
}

// handle never answers: every path returns SkipReply so requests seen on a
// watched channel are left to their real handlers.
func (m *monitor) handle(c *broker.Context) (any, error) {
	if m.excluded(c.Channel()) {
		return nil, broker.SkipReply
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\nChannel: %s\n", time.Now().Format(time.DateTime), c.Channel())

	headers := c.Headers()
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %v\n", k, headers[k])
	}

	body, err := sonic.ConfigStd.MarshalIndent(c.Body(), "", "    ")
	if err != nil {
		fmt.Fprintf(&b, "%v\n", c.Body())
	} else {
		b.Write(body)
		b.WriteByte('\n')
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := io.WriteString(m.out, m.clip(b.String())); err != nil {
		m.log.Warn("monitor output failed", zap.String("channel", c.Channel()), zap.Error(err))
	}
	return nil, broker.SkipReply
}

func (m *monitor) clip(text string) string {
	const mark = "<truncated>\n"
	if m.truncate <= 0 || len(text) <= m.truncate {
		return text
	}
	return text[:max(m.truncate-len(mark), 0)] + mark
}
