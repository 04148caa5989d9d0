package logsvc

import (
	"bytes"
	"fmt"
	"log"
	"strings"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/rollcall/core"
)

func newTestLogger(debug bool) (*RollbarLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	conf := &core.Config{Env: "TEST", Debug: debug}
	l := NewRollbarLogger(log.New(&buf, "", 0), conf)
	l.Enable(false)
	return l, &buf
}

func TestRollbarLogger_print(t *testing.T) {
	tests := []struct {
		name string
		log  func(l *RollbarLogger)
		want string
	}{
		{
			name: "message only",
			log:  func(l *RollbarLogger) { l.Info("started") },
			want: "INFO started\n",
		},
		{
			name: "error & extras",
			log: func(l *RollbarLogger) {
				l.Error("running group filter", errors.New("boom"), map[string]interface{}{"group_id": 3, "b": "x"})
			},
			want: "ERROR running group filter error=\"boom\" b=x group_id=3\n",
		},
		{
			name: "person",
			log: func(l *RollbarLogger) {
				l.Warn("denied", core.Person{ID: "1", Username: "admin"})
			},
			want: "WARN denied person=admin\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, buf := newTestLogger(false)
			tt.log(l)
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestRollbarLogger_Debug(t *testing.T) {
	l, buf := newTestLogger(false)
	l.Debug("hidden")
	assert.Empty(t, buf.String())

	l, buf = newTestLogger(true)
	l.Debug("shown")
	assert.Equal(t, "DEBUG shown\n", buf.String())
}

func TestRollbarLogger_prepare(t *testing.T) {
	admin := core.Person{ID: "1", Username: "admin"}
	staff := core.Person{ID: "2", Username: "staff"}

	tests := []struct {
		name          string
		args          []interface{}
		wantArgs      []interface{}
		wantPersonSet bool
	}{
		{
			name:          "person",
			args:          []interface{}{admin, map[string]interface{}{"a": 1}},
			wantArgs:      []interface{}{"msg", map[string]interface{}{"a": 1}},
			wantPersonSet: true,
		},
		{
			name:          "first person only",
			args:          []interface{}{staff, admin},
			wantArgs:      []interface{}{"msg"},
			wantPersonSet: true,
		},
		{
			name:     "no person clears the previous one",
			args:     []interface{}{errors.New("boom")},
			wantArgs: []interface{}{"msg", errors.New("boom")},
		},
		{
			name:     "still no person",
			wantArgs: []interface{}{"msg"},
		},
	}
	l, _ := newTestLogger(false)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rollbarMu.Lock()
			defer rollbarMu.Unlock()
			args := l.prepare("msg", tt.args)
			require.Len(t, args, len(tt.wantArgs))
			for i := range args {
				assert.Equal(t, fmt.Sprint(tt.wantArgs[i]), fmt.Sprint(args[i]))
			}
			assert.Equal(t, tt.wantPersonSet, personIsSet)
		})
	}
}

func TestRollbarLogger_concurrent(t *testing.T) {
	const workers, perWorker = 8, 50

	l, buf := newTestLogger(false)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				if w%2 == 0 {
					l.Error("running group filter", errors.New("boom"), map[string]interface{}{"group_id": w})
				} else {
					l.Info("group filters run", core.Person{ID: fmt.Sprint(w), Username: "admin"})
				}
			}
		}(w)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, workers*perWorker)
}
