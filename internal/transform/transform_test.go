package transform

import (
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/starford/herald/internal/assets"
	"github.com/starford/herald/internal/policy"
)

type placed struct {
	kind assets.Kind
	src  string
}

// fakeSink records placements and publishes under fixed prefixes.
type fakeSink struct {
	placed []placed
	err    error
}

func (f *fakeSink) Place(kind assets.Kind, src string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.placed = append(f.placed, placed{kind, src})
	name := assets.PublicName(filepath.Base(src))
	if kind == assets.KindImage {
		return "/images/blog/" + name, nil
	}
	return "/files/blog/" + name, nil
}

func newTestTransformer(sink Sink) *Transformer {
	idx := assets.NewIndex(map[string]string{
		"photo.png":     "/src/a/photo.png",
		"my pic.jpg":    "/src/b/my pic.jpg",
		"report.pdf":    "/src/files/report.pdf",
		"diagram.svg":   "/src/diagram.svg",
		"Other Note.md": "/src/Other Note.md",
	})
	return New(idx, sink, policy.Default(), "/blog/")
}

func TestTransform_WikiImageEmbed(t *testing.T) {
	sink := &fakeSink{}
	tr := newTestTransformer(sink)
	res, err := tr.Transform("note.md", "Look: ![[photo.png]]", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Body != "Look: ![](/images/blog/photo.png)" {
		t.Errorf("body = %q", res.Body)
	}
	if len(sink.placed) != 1 || sink.placed[0].src != "/src/a/photo.png" || sink.placed[0].kind != assets.KindImage {
		t.Errorf("placed = %+v", sink.placed)
	}
}

func TestTransform_StandardEmbedDecodedAndRenamed(t *testing.T) {
	tr := newTestTransformer(&fakeSink{})
	res, err := tr.Transform("note.md", "![Alt text](attachments/my%20pic.jpg)", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Body != "![Alt text](/images/blog/my_pic.jpg)" {
		t.Errorf("body = %q", res.Body)
	}
}

func TestTransform_SizeAliasDropped(t *testing.T) {
	tr := newTestTransformer(&fakeSink{})
	res, _ := tr.Transform("note.md", "![[photo.png|300]] ![[diagram.svg|Schema]]", nil, nil)
	want := "![](/images/blog/photo.png) ![Schema](/images/blog/diagram.svg)"
	if res.Body != want {
		t.Errorf("body = %q, want %q", res.Body, want)
	}
}

func TestTransform_MissingEmbedUnchanged(t *testing.T) {
	sink := &fakeSink{}
	tr := newTestTransformer(sink)
	body := "![[absent.png]] and ![x](gone.gif)"
	res, err := tr.Transform("note.md", body, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Body != body {
		t.Errorf("body = %q, want unchanged", res.Body)
	}
	if !reflect.DeepEqual(res.Missing, []string{"absent.png", "gone.gif"}) {
		t.Errorf("missing = %v", res.Missing)
	}
	if len(sink.placed) != 0 {
		t.Errorf("nothing should be placed: %+v", sink.placed)
	}
}

func TestTransform_NonImageEmbedUntouched(t *testing.T) {
	tr := newTestTransformer(&fakeSink{})
	body := "![[Other Note]] and ![[report.pdf]]"
	res, _ := tr.Transform("note.md", body, nil, nil)
	if res.Body != body {
		t.Errorf("body = %q, want unchanged", res.Body)
	}
}

func TestTransform_NoteLinks(t *testing.T) {
	tr := newTestTransformer(&fakeSink{})
	body := "See [[Other Note]], [[Other Note#Part|that part]] and [md](Other%20Note.md#x)."
	res, _ := tr.Transform("note.md", body, nil, nil)
	want := "See [Other Note](/blog/other-note/), [that part](/blog/other-note/) and [md](/blog/other-note/)."
	if res.Body != want {
		t.Errorf("body = %q\nwant %q", res.Body, want)
	}
}

func TestTransform_ExternalAndAnchorLinksUntouched(t *testing.T) {
	tr := newTestTransformer(&fakeSink{})
	body := "[site](https://example.com/a.pdf) [mail](mailto:me@example.com) [top](#top) [[#Section]]"
	res, _ := tr.Transform("note.md", body, nil, nil)
	if res.Body != body {
		t.Errorf("body = %q, want unchanged", res.Body)
	}
}

func TestTransform_AttachmentLink(t *testing.T) {
	sink := &fakeSink{}
	tr := newTestTransformer(sink)
	res, err := tr.Transform("note.md", "Get [[report.pdf|the report]] or [[report.pdf]].", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := `Get <a href="/files/blog/report.pdf">📎 the report</a> or <a href="/files/blog/report.pdf">📎 report.pdf</a>.`
	if res.Body != want {
		t.Errorf("body = %q\nwant %q", res.Body, want)
	}
	for _, p := range sink.placed {
		if p.kind != assets.KindFile {
			t.Errorf("attachment placed as %v", p.kind)
		}
	}
}

func TestTransform_LinkedImageIsAttachment(t *testing.T) {
	sink := &fakeSink{}
	tr := newTestTransformer(sink)
	res, _ := tr.Transform("note.md", "[[photo.png]]", nil, nil)
	if res.Body != `<a href="/files/blog/photo.png">📎 photo.png</a>` {
		t.Errorf("body = %q", res.Body)
	}
}

func TestTransform_EmbedNotRelinked(t *testing.T) {
	tr := newTestTransformer(&fakeSink{})
	res, _ := tr.Transform("note.md", "![[photo.png]] [[Other Note]]", nil, nil)
	want := "![](/images/blog/photo.png) [Other Note](/blog/other-note/)"
	if res.Body != want {
		t.Errorf("body = %q, want %q", res.Body, want)
	}
}

func TestTransform_HeadingDedup(t *testing.T) {
	tr := newTestTransformer(&fakeSink{})
	res, _ := tr.Transform("note.md", "\n\n# Title\nText\n## Later\n# Another", nil, nil)
	if strings.Contains(res.Body, "# Title") {
		t.Errorf("leading heading not removed: %q", res.Body)
	}
	if !strings.Contains(res.Body, "## Later") || !strings.Contains(res.Body, "# Another") {
		t.Errorf("later headings must stay: %q", res.Body)
	}

	res, _ = tr.Transform("note.md", "Intro\n# Heading", nil, nil)
	if res.Body != "Intro\n# Heading" {
		t.Errorf("non-leading heading removed: %q", res.Body)
	}

	// Only a top-level heading repeats the title.
	for _, body := range []string{"## Section\nText", "### Deep\nText", "#hashtag\nText"} {
		res, _ = tr.Transform("note.md", body, nil, nil)
		if res.Body != body {
			t.Errorf("%q: body = %q", body, res.Body)
		}
	}
}

func TestTransform_InlineTagsRemovedAndFiltered(t *testing.T) {
	tr := newTestTransformer(&fakeSink{})
	body := "Text #публикация #тип/заметка #проект-х end #проект-хх"
	inline := []string{"#публикация", "#тип/заметка", "#проект-х"}
	res, err := tr.Transform("note.md", body, inline, []string{"go"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Body != "Text    end #проект-хх" {
		t.Errorf("body = %q", res.Body)
	}
	if !reflect.DeepEqual(res.Tags, []string{"go", "проект-х"}) {
		t.Errorf("tags = %v", res.Tags)
	}
}

func TestTransform_SinkErrorFailsNote(t *testing.T) {
	tr := newTestTransformer(&fakeSink{err: errors.New("disk full")})
	if _, err := tr.Transform("note.md", "![[photo.png]]", nil, nil); err == nil {
		t.Fatal("expected sink error to fail the transform")
	}
}
