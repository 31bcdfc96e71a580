package metadata

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"xdao.co/arena/tags"
	"xdao.co/arena/upload"
)

type call struct {
	payload     []byte
	contentType string
}

// fakeUploader records calls and fails the call numbers listed in failOn.
type fakeUploader struct {
	mu     sync.Mutex
	calls  []call
	failOn map[int]error
}

func (f *fakeUploader) Upload(_ context.Context, payload []byte, tl tags.List) (upload.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ct, _ := tl.Get(tags.ContentType)
	f.calls = append(f.calls, call{payload: append([]byte(nil), payload...), contentType: ct})
	n := len(f.calls)
	if err := f.failOn[n]; err != nil {
		return upload.Result{}, err
	}
	id := fmt.Sprintf("id%d", n)
	return upload.Result{ID: id, URL: "https://gw.example/" + id}, nil
}

type pngRenderer struct{ got Art }

func (r *pngRenderer) Render(_ context.Context, art Art) ([]byte, string, error) {
	r.got = art
	return []byte{0x89, 'P', 'N', 'G'}, "image/png", nil
}

func TestUploadCharacterMetadataHappyPath(t *testing.T) {
	up := &fakeUploader{}
	r := &pngRenderer{}
	o := NewOrchestrator(up, r, nil)

	u, err := o.UploadCharacterMetadata(context.Background(), 2, "Thor", "God of thunder", 110, 22, 8)
	require.NoError(t, err)
	require.Equal(t, "https://gw.example/id2", u)

	require.Equal(t, Art{Hue: 120, Name: "Thor", HP: 110, ATK: 22, DEF: 8}, r.got)
	require.Len(t, up.calls, 2)
	require.Equal(t, "image/png", up.calls[0].contentType)
	require.Equal(t, []byte{0x89, 'P', 'N', 'G'}, up.calls[0].payload)
	require.Equal(t, "application/json", up.calls[1].contentType)

	var doc CharacterMetadata
	require.NoError(t, json.Unmarshal(up.calls[1].payload, &doc))
	require.Equal(t, CharacterMetadata{
		Name:        "Thor",
		Description: "God of thunder",
		Image:       "https://gw.example/id1",
		Attributes: []Attribute{
			{TraitType: "HP", Value: 110},
			{TraitType: "ATK", Value: 22},
			{TraitType: "DEF", Value: 8},
		},
	}, doc)
}

func TestAttributesOrder(t *testing.T) {
	up := &fakeUploader{}
	_, err := NewOrchestrator(up, &pngRenderer{}, nil).UploadCharacterMetadata(context.Background(), 0, "Freya", "d", 1, 2, 3)
	require.NoError(t, err)

	s := string(up.calls[1].payload)
	hp, atk, def := strings.Index(s, `"HP"`), strings.Index(s, `"ATK"`), strings.Index(s, `"DEF"`)
	require.True(t, hp >= 0 && hp < atk && atk < def, "attributes out of order: %s", s)
}

func TestImageUploadFailureSkipsMetadata(t *testing.T) {
	boom := errors.New("boom")
	up := &fakeUploader{failOn: map[int]error{1: boom}}

	_, err := NewOrchestrator(up, &pngRenderer{}, nil).UploadCharacterMetadata(context.Background(), 0, "Freya", "d", 100, 18, 12)
	require.ErrorIs(t, err, boom)
	require.Len(t, up.calls, 1)

	var se *StageError
	require.True(t, errors.As(err, &se))
	require.Equal(t, StageImage, se.Stage)
}

func TestMetadataUploadFailurePropagates(t *testing.T) {
	boom := &upload.Error{Kind: upload.KindRemoteRejected, Status: 500}
	up := &fakeUploader{failOn: map[int]error{2: boom}}

	u, err := NewOrchestrator(up, &pngRenderer{}, nil).UploadCharacterMetadata(context.Background(), 0, "Freya", "d", 100, 18, 12)
	require.Empty(t, u)
	require.True(t, upload.IsKind(err, upload.KindRemoteRejected))
	require.Len(t, up.calls, 2)

	var se *StageError
	require.True(t, errors.As(err, &se))
	require.Equal(t, StageMetadata, se.Stage)
}

type failingRenderer struct{}

func (failingRenderer) Render(context.Context, Art) ([]byte, string, error) {
	return nil, "", errors.New("no canvas")
}

func TestRenderFailureUploadsNothing(t *testing.T) {
	up := &fakeUploader{}
	_, err := NewOrchestrator(up, failingRenderer{}, nil).UploadCharacterMetadata(context.Background(), 0, "Freya", "d", 1, 1, 1)
	require.Error(t, err)
	require.Empty(t, up.calls)
}

func TestDefaultRendererIsSVG(t *testing.T) {
	up := &fakeUploader{}
	_, err := NewOrchestrator(up, nil, nil).UploadCharacterMetadata(context.Background(), 1, "Odin", "d", 120, 15, 15)
	require.NoError(t, err)
	require.Equal(t, ContentTypeSVG, up.calls[0].contentType)
	require.Contains(t, string(up.calls[0].payload), "hsl(60,80%,60%)")
}

func TestUploadText(t *testing.T) {
	up := &fakeUploader{}
	o := NewOrchestrator(up, nil, nil)

	u, err := o.UploadText(context.Background(), CollectionMetadataJSON(CollectionName, CollectionDescription), "application/json")
	require.NoError(t, err)
	require.Equal(t, "https://gw.example/id1", u)
	require.Len(t, up.calls, 1)
	require.JSONEq(t,
		`{"name":"Mojo Arena Characters","description":"On-chain characters for the Mojo Arena demo","image":""}`,
		string(up.calls[0].payload))
}

func TestUploadTextOrFallback(t *testing.T) {
	fallback := CollectionDataURI(CollectionName)

	ok := NewOrchestrator(&fakeUploader{}, nil, nil)
	u, used := ok.UploadTextOrFallback(context.Background(), "{}", "application/json", fallback)
	require.False(t, used)
	require.Equal(t, "https://gw.example/id1", u)

	failing := NewOrchestrator(&fakeUploader{failOn: map[int]error{1: errors.New("down")}}, nil, nil)
	u, used = failing.UploadTextOrFallback(context.Background(), "{}", "application/json", fallback)
	require.True(t, used)
	require.Equal(t, fallback, u)
}

func TestSVGRendererDeterministic(t *testing.T) {
	art := Art{Hue: Hue(3), Name: "Loki", HP: 80, ATK: 25, DEF: 5}
	a, ct, err := SVGRenderer{}.Render(context.Background(), art)
	require.NoError(t, err)
	require.Equal(t, ContentTypeSVG, ct)
	b, _, err := SVGRenderer{}.Render(context.Background(), art)
	require.NoError(t, err)
	require.Equal(t, a, b)

	s := string(a)
	require.True(t, strings.HasPrefix(s, "<svg"))
	require.Contains(t, s, "hsl(180,80%,60%)")
	require.Contains(t, s, ">Loki</text>")
	require.Contains(t, s, "HP 80 ATK 25 DEF 5")
	require.Contains(t, s, `fill="rgb(10,10,10)"`)
}

func TestCharacterSVGEscapesName(t *testing.T) {
	require.Contains(t, CharacterSVG(Art{Name: "<b>&"}), "&lt;b&gt;&amp;")
}

func TestRoster(t *testing.T) {
	r := Roster()
	require.Len(t, r, 6)
	require.Equal(t, Template{Name: "Freya", Description: "Norse warrior goddess", HP: 100, ATK: 18, DEF: 12}, r[0])
	require.Equal(t, "Tyr", r[5].Name)

	tmpl, idx, ok := Lookup("Loki")
	require.True(t, ok)
	require.Equal(t, 3, idx)
	require.EqualValues(t, 25, tmpl.ATK)

	_, _, ok = Lookup("Zeus")
	require.False(t, ok)
}

func decodeDataURI(t *testing.T, uri, prefix string) []byte {
	t.Helper()
	require.True(t, strings.HasPrefix(uri, prefix), "uri %q lacks prefix %q", uri, prefix)
	b, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, prefix))
	require.NoError(t, err)
	return b
}

func TestCharacterDataURI(t *testing.T) {
	raw := decodeDataURI(t, CharacterDataURI(4, "Hel"), "data:application/json;base64,")

	var doc struct {
		Name  string `json:"name"`
		Image string `json:"image"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))
	require.Equal(t, "Hel", doc.Name)

	svg := decodeDataURI(t, doc.Image, "data:image/svg+xml;base64,")
	require.Equal(t, BadgeSVG(4, "Hel"), string(svg))
	require.Contains(t, string(svg), "hsl(240,80%,60%)")
	require.Contains(t, string(svg), ">H</text>")
}

func TestBadgeSVGEmptyName(t *testing.T) {
	require.Contains(t, BadgeSVG(0, ""), ">?</text>")
}

func TestCollectionAndProfileDataURI(t *testing.T) {
	for _, uri := range []string{CollectionDataURI(CollectionName), ProfileDataURI(CollectionName)} {
		raw := decodeDataURI(t, uri, "data:application/json;base64,")
		require.JSONEq(t, `{"name":"Mojo Arena Characters","image":""}`, string(raw))
	}
}
