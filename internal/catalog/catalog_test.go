package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePlans = `{"plans":[
	{"id":"company-30","name":"Company month","target_type":"company","duration_days":30,"amount_cents":4900,"currency":"eur"},
	{"id":"ad-7","name":"Ad week","target_type":"ad","duration_days":7,"amount_cents":499},
	{"id":"ad-30","name":"Ad month","target_type":"ad","duration_days":30,"amount_cents":1499,"currency":"eur"}
]}`

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plans.json")
	require.NoError(t, os.WriteFile(path, []byte(samplePlans), 0o600))

	c, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.True(t, c.Exists("ad-7"))
	assert.False(t, c.Exists("missing"))
	assert.Equal(t, "eur", c.Get("ad-7").Currency)

	all := c.All()
	require.Len(t, all, 3)
	assert.Equal(t, []string{"ad-7", "ad-30", "company-30"}, []string{all[0].ID, all[1].ID, all[2].ID})
}

func TestParseRejectsInvalidPlans(t *testing.T) {
	cases := map[string]string{
		"missing id":   `{"plans":[{"target_type":"ad","duration_days":1,"amount_cents":1}]}`,
		"bad target":   `{"plans":[{"id":"x","target_type":"user","duration_days":1,"amount_cents":1}]}`,
		"zero days":    `{"plans":[{"id":"x","target_type":"ad","duration_days":0,"amount_cents":1}]}`,
		"zero amount":  `{"plans":[{"id":"x","target_type":"ad","duration_days":1,"amount_cents":0}]}`,
		"invalid json": `{"plans":`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(body))
			assert.Error(t, err)
		})
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
