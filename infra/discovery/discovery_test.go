package discovery

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiff(t *testing.T) {
	a := Instance{Name: "msg-gateway", Address: "10.0.0.1", Port: 50003}
	b := Instance{Name: "msg-gateway", Address: "10.0.0.2", Port: 50003}
	c := Instance{Name: "msg-gateway", Address: "10.0.0.3", Port: 50003}

	set := func(ins ...Instance) map[string]Instance {
		m := make(map[string]Instance)
		for _, i := range ins {
			m[i.Addr()] = i
		}
		return m
	}

	t.Run("initial replay is all inserts", func(t *testing.T) {
		deltas := Diff(nil, set(a, b))
		assert.Len(t, deltas, 2)
		for _, d := range deltas {
			assert.Equal(t, OpInsert, d.Op)
		}
	})

	t.Run("mixed churn", func(t *testing.T) {
		deltas := Diff(set(a, b), set(b, c))
		assert.Len(t, deltas, 2)

		var inserts, removes []string
		for _, d := range deltas {
			switch d.Op {
			case OpInsert:
				inserts = append(inserts, d.Instance.Addr())
			case OpRemove:
				removes = append(removes, d.Instance.Addr())
			}
		}
		sort.Strings(inserts)
		assert.Equal(t, []string{"10.0.0.3:50003"}, inserts)
		assert.Equal(t, []string{"10.0.0.1:50003"}, removes)
	})

	t.Run("no change", func(t *testing.T) {
		assert.Empty(t, Diff(set(a), set(a)))
	})
}

func TestInstanceAddr(t *testing.T) {
	ins := Instance{Address: "10.1.2.3", Port: 50001}
	assert.Equal(t, "10.1.2.3:50001", ins.Addr())
}

func TestInstanceIDIsDeterministic(t *testing.T) {
	assert.Equal(t, InstanceID("chat"), InstanceID("chat"))
	assert.NotEqual(t, InstanceID("chat"), InstanceID("db"))
}
