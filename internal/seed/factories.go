package seed

import (
	"fmt"
	"strings"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/sakif/artifact-cms/internal/model"
	"github.com/sakif/artifact-cms/internal/service"
)

func fakeArtifact(f *gofakeit.Faker) service.ArtifactInput {
	types := model.ArtifactTypes()
	t := types[f.Number(0, len(types)-1)].Value

	tags := make([]string, f.Number(0, 3))
	for i := range tags {
		tags[i] = strings.ToLower(f.Word())
	}

	return service.ArtifactInput{
		Title:       strings.TrimSuffix(f.Sentence(4), "."),
		Type:        t,
		Description: f.Sentence(12),
		Code:        fakeCode(f, t),
		Tags:        model.NormalizeTags(tags),
		IsPublic:    f.Number(0, 3) != 0,
	}
}

func fakeCode(f *gofakeit.Faker, t model.ArtifactType) string {
	switch t {
	case model.TypeHTML:
		return fmt.Sprintf("<!DOCTYPE html>\n<html><body style=\"background:%s\">\n<h1>%s</h1>\n<p>%s</p>\n</body></html>\n",
			f.SafeColor(), f.HackerPhrase(), f.Paragraph(1, 3, 10, " "))
	case model.TypeReact:
		return fmt.Sprintf(`function App() {
  const [count, setCount] = React.useState(%d);
  return (
    <div className="p-4">
      <h1 className="text-xl">%s</h1>
      <button onClick={() => setCount(count + 1)}>Clicked {count} times</button>
    </div>
  );
}
`, f.Number(0, 10), f.HackerPhrase())
	case model.TypeMarkdown:
		return fmt.Sprintf("# %s\n\n%s\n\n- %s\n- %s\n", f.Sentence(3), f.Paragraph(1, 2, 12, " "), f.Word(), f.Word())
	case model.TypeMermaid:
		return fmt.Sprintf("graph TD\n  A[%s] --> B[%s]\n  B --> C[%s]\n", f.Noun(), f.Noun(), f.Noun())
	case model.TypeSVG:
		return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="120" height="120"><circle cx="60" cy="60" r="%d" fill="%s"/></svg>`,
			f.Number(10, 55), f.SafeColor())
	default:
		return f.HackerPhrase()
	}
}

func newFaker(seed int64) *gofakeit.Faker {
	return gofakeit.New(seed)
}
