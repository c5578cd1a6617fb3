package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/brand-scorecard/internal/config"
	"github.com/sells-group/brand-scorecard/internal/llm"
	"github.com/sells-group/brand-scorecard/internal/model"
)

func replying(text string) *fakeLLM {
	return newFakeLLM(func(llm.Request) (string, error) { return text, nil })
}

var someThreads = []model.RedditThread{
	thread("a", "anvils", "Initech vs the rest", "I switched from Initech last year."),
}

func discover(t *testing.T, reply, brand string, limit int) model.CompetitorSet {
	t.Helper()
	d := NewCompetitorDiscoverer(replying(reply), config.PipelineConfig{})
	return d.Discover(context.Background(), NewRunContext(brand), brand, someThreads, limit)
}

func TestDiscover_ProseListIsMinedManually(t *testing.T) {
	set := discover(t, "Looking at these threads. Competitors: Acme, Globex.", "Initech", 4)

	assert.Equal(t, []string{"Acme", "Globex"}, set.Competitors)
	assert.Equal(t, "manualExtraction", set.Strategy)
	assert.Empty(t, set.Error)
}

func TestDiscover_DirectJSON(t *testing.T) {
	set := discover(t, `{"competitors": [{"name": "Globex", "mentions": 2}, {"name": "Acme Inc.", "mentions": 5, "context": "Acme is cheaper"}]}`, "Initech", 4)

	assert.Equal(t, "directJSON", set.Strategy)
	assert.Equal(t, []string{"Globex", "Acme"}, set.Competitors)
	assert.Equal(t, map[string]int{"Acme": 5, "Globex": 2}, set.CompetitorMentions)
	assert.Equal(t, []string{"Acme is cheaper"}, set.CompetitorContexts["Acme"])
}

func TestDiscover_EmbeddedJSON(t *testing.T) {
	set := discover(t, "Sure! Here you go:\n```json\n{\"competitors\": [\"Hooli\", \"Pied Piper\"]}\n```", "Initech", 4)

	assert.Equal(t, "embeddedJSON", set.Strategy)
	assert.Equal(t, []string{"Hooli", "Pied Piper"}, set.Competitors)
}

func TestDiscover_ValidEmptyJSONIsNotAnError(t *testing.T) {
	set := discover(t, `{"competitors": []}`, "Initech", 4)

	assert.Empty(t, set.Competitors)
	assert.NotNil(t, set.Competitors)
	assert.Empty(t, set.Error)
}

func TestDiscover_ExcludesBrandAndCaps(t *testing.T) {
	reply := `{"competitors": ["initech", "INITECH", "Acme", "Globex", "Hooli", "Umbrella", "Soylent", "Vandelay"]}`
	set := discover(t, reply, "Initech", 3)

	require.Len(t, set.Competitors, 3)
	for _, c := range set.Competitors {
		assert.NotEqual(t, "initech", strings.ToLower(c))
	}
	assert.Equal(t, []string{"Acme", "Globex", "Hooli"}, set.Competitors)
}

func TestDiscover_CapKeepsMostMentionedInDiscoveryOrder(t *testing.T) {
	reply := `{"competitors": [{"name": "Acme", "mentions": 1}, {"name": "Globex", "mentions": 3}, {"name": "Hooli", "mentions": 1}, {"name": "Umbrella", "mentions": 3}]}`
	set := discover(t, reply, "Initech", 3)

	// Hooli ties Acme on mentions but was discovered later.
	assert.Equal(t, []string{"Acme", "Globex", "Umbrella"}, set.Competitors)
	assert.NotContains(t, set.CompetitorMentions, "Hooli")
}

func TestDiscover_ProseListKeepsOrderRegardlessOfCorpusCounts(t *testing.T) {
	threads := []model.RedditThread{
		thread("a", "retail", "Globex everywhere", "Globex Globex Globex, and Acme once."),
	}
	d := NewCompetitorDiscoverer(replying("Competitors: Acme, Globex."), config.PipelineConfig{})

	set := d.Discover(context.Background(), NewRunContext("Initech"), "Initech", threads, 4)

	assert.Equal(t, []string{"Acme", "Globex"}, set.Competitors)
	assert.Greater(t, set.CompetitorMentions["Globex"], set.CompetitorMentions["Acme"])
}

func TestDiscover_ProseWithoutNamesYieldsNothing(t *testing.T) {
	for _, reply := range []string{
		"Competitors are not explicitly mentioned in these threads.",
		"No competitors: the threads only discuss pricing.",
	} {
		t.Run(reply, func(t *testing.T) {
			set := discover(t, reply, "Initech", 4)

			assert.Empty(t, set.Competitors)
			assert.NotEmpty(t, set.Error)
		})
	}
}

func TestDiscover_KeepsWellKnownBrands(t *testing.T) {
	set := discover(t, `{"competitors": ["Amazon"]}`, "Walmart", 4)
	assert.Equal(t, []string{"Amazon"}, set.Competitors)

	set = discover(t, `{"competitors": ["Google", "DuckDuckGo"]}`, "Bing", 4)
	assert.Equal(t, []string{"Google", "DuckDuckGo"}, set.Competitors)
}

func TestDiscover_NoThreadsSkipsModel(t *testing.T) {
	p := replying(`{"competitors": ["Acme"]}`)
	d := NewCompetitorDiscoverer(p, config.PipelineConfig{})

	set := d.Discover(context.Background(), NewRunContext("Initech"), "Initech", nil, 4)

	assert.Empty(t, set.Competitors)
	assert.NotNil(t, set.CompetitorMentions)
	assert.Zero(t, p.callCount())
}

func TestDiscover_ModelFailure(t *testing.T) {
	d := NewCompetitorDiscoverer(newFakeLLM(func(llm.Request) (string, error) { return "", errors.New("overloaded") }), config.PipelineConfig{})

	set := d.Discover(context.Background(), NewRunContext("Initech"), "Initech", someThreads, 4)

	assert.Equal(t, []string{}, set.Competitors)
	assert.Equal(t, map[string]int{}, set.CompetitorMentions)
	assert.Contains(t, set.Error, "overloaded")
}

func TestDiscover_UnparseableProse(t *testing.T) {
	set := discover(t, "there are no obvious rivals here", "Initech", 4)

	assert.Empty(t, set.Competitors)
	assert.NotEmpty(t, set.Error)
}

func TestParseManual_Phrases(t *testing.T) {
	text := `People mention it as an alternative to Globex Corp. Some compared to Hooli, others went with Umbrella instead of it. It's Initech vs. Acme mostly. Also "Pied Piper" came up.`
	cands, ok := parseManual(text)
	require.True(t, ok)

	set := NormalizeCompetitors(cands, "Initech", "", 10)
	assert.ElementsMatch(t, []string{"Globex", "Hooli", "Acme", "Pied Piper"}, set.Competitors)
}

func TestParseManual_ListItemsMustBeNames(t *testing.T) {
	cands, ok := parseManual("Competitors include Acme, some local shops and Pied Piper.")
	require.True(t, ok)

	var names []string
	for _, c := range cands {
		assert.True(t, c.Mined)
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"Acme", "Pied Piper"}, names)
}

func TestNormalizeCompetitors_MinedNamesKeepCasing(t *testing.T) {
	set := NormalizeCompetitors([]candidate{{Name: "acme", Mined: true}, {Name: "globex"}}, "Initech", "", 10)

	assert.Equal(t, []string{"acme", "Globex"}, set.Competitors)
}

func TestNormalizeCompetitors(t *testing.T) {
	cands := []candidate{
		{Name: "  acme co. "},
		{Name: "Acme"},
		{Name: "GE"},
		{Name: strings.Repeat("X", 51)},
		{Name: "Reddit"},
		{Name: "globex corporation"},
	}
	set := NormalizeCompetitors(cands, "Initech", "acme acme globex", 10)

	assert.Equal(t, []string{"Acme", "Globex"}, set.Competitors)
	assert.Equal(t, 2, set.CompetitorMentions["Acme"])
	assert.Equal(t, 1, set.CompetitorMentions["Globex"])
}
