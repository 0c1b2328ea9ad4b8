package openapi

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-optionform/pkg/form"
	"github.com/goliatone/go-optionform/pkg/mask"
	"github.com/goliatone/go-optionform/pkg/model"
	"github.com/goliatone/go-optionform/pkg/store"
)

const shopSpec = `
openapi: 3.0.3
info:
  title: Shop
  version: "1.0"
paths: {}
components:
  schemas:
    ShopSettings:
      type: object
      title: Shop settings
      x-optionform:
        order: [title, catalog]
      required: [title]
      properties:
        title:
          type: string
          title: Store title
          default: Acme
        debug:
          type: boolean
        catalog:
          type: object
          title: Catalog
          description: Listing options
          properties:
            per_page:
              type: integer
              minimum: 1
              maximum: 100
              default: 20
            ratio:
              type: number
              default: 1.5
            sort:
              type: string
              enum: [price, name]
              default: price
            tags:
              type: array
              items:
                type: string
            banner:
              type: string
              x-optionform:
                depends_on:
                  - option: debug
                    value: true
        servers:
          type: array
          items:
            type: object
            properties:
              host:
                type: string
              port:
                type: integer
        labels:
          type: object
          additionalProperties:
            type: string
`

func loadShop(t *testing.T) Document {
	t.Helper()
	loader := NewLoader(WithFileSystem(fstest.MapFS{"shop.yaml": {Data: []byte(shopSpec)}}))
	doc, err := loader.Load(context.Background(), SourceFromFS("shop.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return doc
}

func TestComponents(t *testing.T) {
	names, err := loadShop(t).Components(context.Background())
	if err != nil {
		t.Fatalf("components: %v", err)
	}
	if diff := cmp.Diff([]string{"ShopSettings"}, names); diff != "" {
		t.Fatalf("components (-want +got):\n%s", diff)
	}
}

func TestFormBuildsSections(t *testing.T) {
	doc, err := loadShop(t).Form(context.Background(), "ShopSettings")
	if err != nil {
		t.Fatalf("form: %v", err)
	}
	if doc.Slug != "shop_settings" || doc.Title != "Shop settings" {
		t.Fatalf("slug/title = %q/%q", doc.Slug, doc.Title)
	}
	if len(doc.Sections) != 2 {
		t.Fatalf("sections = %d", len(doc.Sections))
	}

	general := doc.Sections[0]
	var keys []string
	for _, spec := range general.Options {
		keys = append(keys, spec.Key)
	}
	if diff := cmp.Diff([]string{"title", "debug", "labels", "servers"}, keys); diff != "" {
		t.Fatalf("general keys (-want +got):\n%s", diff)
	}
	title := general.Options[0].Descriptor
	if !title.Required || title.Label.Text() != "Store title" || !title.Default.Equal(mask.String("Acme")) {
		t.Fatalf("title descriptor = %+v", title)
	}
	labels := general.Options[2].Descriptor
	if labels.Kind != model.KindObject || labels.Field == nil || labels.Field.Kind != model.KindText {
		t.Fatalf("labels descriptor = %+v", labels)
	}
	servers := general.Options[3].Descriptor
	if servers.Kind != model.KindObject || !servers.Multiple() || len(servers.Template) != 2 {
		t.Fatalf("servers descriptor = %+v", servers)
	}
	if servers.Template[1].Key != "port" || servers.Template[1].Kind != model.KindNumber {
		t.Fatalf("servers template = %+v", servers.Template)
	}

	catalog := doc.Sections[1]
	if catalog.Key != "catalog" || catalog.Description.Text() != "Listing options" {
		t.Fatalf("catalog section = %+v", catalog)
	}
	byKey := make(map[string]model.Descriptor)
	for _, spec := range catalog.Options {
		byKey[spec.Key] = spec.Descriptor
	}
	perPage := byKey["per_page"]
	if perPage.Kind != model.KindNumber || perPage.Float || *perPage.Min != 1 || *perPage.Max != 100 {
		t.Fatalf("per_page = %+v", perPage)
	}
	if !perPage.Default.Equal(mask.Int(20)) {
		t.Fatalf("per_page default = %v", perPage.Default)
	}
	if ratio := byKey["ratio"]; !ratio.Float || !ratio.Default.Equal(mask.Float(1.5)) {
		t.Fatalf("ratio = %+v", ratio)
	}
	wantChoices := model.Choices{{Value: "price", Label: "Price"}, {Value: "name", Label: "Name"}}
	if diff := cmp.Diff(wantChoices, byKey["sort"].Choices); diff != "" {
		t.Fatalf("sort choices (-want +got):\n%s", diff)
	}
	if tags := byKey["tags"]; !tags.Multiple() || tags.Kind != model.KindText {
		t.Fatalf("tags = %+v", tags)
	}
	banner := byKey["banner"]
	if len(banner.DependsOn) != 1 || banner.DependsOn[0].Ref != "debug" || !banner.DependsOn[0].Expect.Equal(mask.Bool(true)) {
		t.Fatalf("banner depends_on = %+v", banner.DependsOn)
	}
}

func TestFormFeedsOptionForm(t *testing.T) {
	ctx := context.Background()
	doc, err := loadShop(t).Form(ctx, "ShopSettings", WithSlug("shop"))
	if err != nil {
		t.Fatalf("form: %v", err)
	}
	f, err := form.NewFromDocument(doc, store.NewMemory())
	if err != nil {
		t.Fatalf("new form: %v", err)
	}
	values, err := f.Expand(ctx)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	perPage, _ := values.Lookup("catalog")
	got, _ := perPage.Lookup("per_page")
	if !got.Equal(mask.Int(20)) {
		t.Fatalf("catalog.per_page = %v", got)
	}
}

func TestFormUnknownComponent(t *testing.T) {
	_, err := loadShop(t).Form(context.Background(), "Missing")
	if !errors.Is(err, ErrUnknownComponent) {
		t.Fatalf("err = %v, want ErrUnknownComponent", err)
	}
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"ShopSettings": "shop_settings",
		"shop":         "shop",
		"Site-Config":  "site_config",
		"APIKeys":      "apikeys",
	}
	for in, want := range cases {
		if got := slugify(in); got != want {
			t.Errorf("slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLoaderRejectsURLWithoutClient(t *testing.T) {
	src, err := SourceFromURL("https://example.com/openapi.yaml")
	if err != nil {
		t.Fatalf("source: %v", err)
	}
	if _, err := NewLoader().Load(context.Background(), src); err == nil {
		t.Fatalf("expected http to be disabled")
	}
}
