package content

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// FieldType selects the form control rendered for a Field.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldTextarea FieldType = "textarea"
	FieldMarkdown FieldType = "markdown"
	FieldNumber   FieldType = "number"
	FieldCheckbox FieldType = "checkbox"
	FieldSelect   FieldType = "select"
	FieldDate     FieldType = "date"
	FieldEmail    FieldType = "email"
	FieldPassword FieldType = "password"
	FieldURL      FieldType = "url"
)

// Field describes one editable form field of a kind. Name is the form key
// (the `form` struct tag), Label an i18n message key.
type Field struct {
	Name     string
	Label    string
	Type     FieldType
	Options  []string
	Required bool
	Hint     string
}

var listingFields = []Field{
	{Name: "title_bg", Label: "field.title_bg", Type: FieldText},
	{Name: "title_en", Label: "field.title_en", Type: FieldText},
	{Name: "slug", Label: "field.slug", Type: FieldText, Hint: "hint.slug"},
	{Name: "description_bg", Label: "field.description_bg", Type: FieldMarkdown},
	{Name: "description_en", Label: "field.description_en", Type: FieldMarkdown},
	{Name: "category", Label: "field.category", Type: FieldText},
	{Name: "price", Label: "field.price", Type: FieldNumber},
	{Name: "currency", Label: "field.currency", Type: FieldText},
	{Name: "image_url", Label: "field.image_url", Type: FieldURL},
	{Name: "status", Label: "field.status", Type: FieldSelect, Options: []string{StatusDraft, StatusActive, StatusArchived}},
	{Name: "featured", Label: "field.featured", Type: FieldCheckbox},
}

var blogPostFields = []Field{
	{Name: "title_bg", Label: "field.title_bg", Type: FieldText},
	{Name: "title_en", Label: "field.title_en", Type: FieldText},
	{Name: "slug", Label: "field.slug", Type: FieldText, Hint: "hint.slug"},
	{Name: "summary_bg", Label: "field.summary_bg", Type: FieldTextarea},
	{Name: "summary_en", Label: "field.summary_en", Type: FieldTextarea},
	{Name: "content_bg", Label: "field.content_bg", Type: FieldMarkdown},
	{Name: "content_en", Label: "field.content_en", Type: FieldMarkdown},
	{Name: "tags", Label: "field.tags", Type: FieldText, Hint: "hint.comma"},
	{Name: "author", Label: "field.author", Type: FieldText},
	{Name: "cover_image", Label: "field.cover_image", Type: FieldURL},
	{Name: "status", Label: "field.status", Type: FieldSelect, Options: []string{StatusDraft, StatusPublished, StatusScheduled}},
	{Name: "publish_on", Label: "field.publish_on", Type: FieldDate},
}

var portfolioFields = []Field{
	{Name: "title_bg", Label: "field.title_bg", Type: FieldText},
	{Name: "title_en", Label: "field.title_en", Type: FieldText},
	{Name: "slug", Label: "field.slug", Type: FieldText, Hint: "hint.slug"},
	{Name: "description_bg", Label: "field.description_bg", Type: FieldMarkdown},
	{Name: "description_en", Label: "field.description_en", Type: FieldMarkdown},
	{Name: "category", Label: "field.category", Type: FieldText},
	{Name: "client", Label: "field.client", Type: FieldText},
	{Name: "year", Label: "field.year", Type: FieldNumber},
	{Name: "image_url", Label: "field.image_url", Type: FieldURL},
	{Name: "gallery", Label: "field.gallery", Type: FieldTextarea, Hint: "hint.comma"},
	{Name: "featured", Label: "field.featured", Type: FieldCheckbox},
	{Name: "sort_order", Label: "field.sort_order", Type: FieldNumber},
}

var userFields = []Field{
	{Name: "name", Label: "field.name", Type: FieldText, Required: true},
	{Name: "email", Label: "field.email", Type: FieldEmail, Required: true},
	{Name: "role", Label: "field.role", Type: FieldSelect, Options: []string{RoleEditor, RoleAdmin}},
	{Name: "active", Label: "field.active", Type: FieldCheckbox},
	{Name: "password", Label: "field.password", Type: FieldPassword, Hint: "hint.password"},
}

var pageFields = []Field{
	{Name: "title_bg", Label: "field.title_bg", Type: FieldText},
	{Name: "title_en", Label: "field.title_en", Type: FieldText},
	{Name: "slug", Label: "field.slug", Type: FieldText, Hint: "hint.slug"},
	{Name: "body_bg", Label: "field.body_bg", Type: FieldMarkdown},
	{Name: "body_en", Label: "field.body_en", Type: FieldMarkdown},
	{Name: "meta_description_bg", Label: "field.meta_description_bg", Type: FieldTextarea},
	{Name: "meta_description_en", Label: "field.meta_description_en", Type: FieldTextarea},
	{Name: "status", Label: "field.status", Type: FieldSelect, Options: []string{StatusDraft, StatusPublished}},
	{Name: "show_in_nav", Label: "field.show_in_nav", Type: FieldCheckbox},
	{Name: "nav_order", Label: "field.nav_order", Type: FieldNumber},
}

var invoiceFields = []Field{
	{Name: "number", Label: "field.number", Type: FieldText, Required: true},
	{Name: "customer_name", Label: "field.customer_name", Type: FieldText, Required: true},
	{Name: "customer_email", Label: "field.customer_email", Type: FieldEmail},
	{Name: "lines", Label: "field.lines", Type: FieldTextarea, Hint: "hint.lines"},
	{Name: "currency", Label: "field.currency", Type: FieldText},
	{Name: "vat_rate", Label: "field.vat_rate", Type: FieldNumber},
	{Name: "status", Label: "field.status", Type: FieldSelect, Options: []string{InvoiceDraft, InvoiceSent, InvoicePaid}},
	{Name: "issued_on", Label: "field.issued_on", Type: FieldDate},
	{Name: "due_on", Label: "field.due_on", Type: FieldDate},
}

// Values flattens item into form values keyed by its `form` struct tags, the
// inverse of binding a submitted form. Password fields are never echoed back.
func Values(item any) map[string]string {
	out := make(map[string]string)
	v := reflect.ValueOf(item)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return out
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return out
	}
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		name := t.Field(i).Tag.Get("form")
		if name == "" || name == "-" || name == "password" {
			continue
		}
		out[name] = formatValue(v.Field(i))
	}
	return out
}

func formatValue(f reflect.Value) string {
	if s, ok := f.Interface().(fmt.Stringer); ok {
		return s.String()
	}
	switch f.Kind() {
	case reflect.String:
		return f.String()
	case reflect.Bool:
		if f.Bool() {
			return "true"
		}
		return ""
	case reflect.Int, reflect.Int64, reflect.Int32:
		if f.Int() == 0 {
			return ""
		}
		return strconv.FormatInt(f.Int(), 10)
	case reflect.Float64, reflect.Float32:
		return strconv.FormatFloat(f.Float(), 'f', -1, 64)
	case reflect.Slice:
		parts := make([]string, 0, f.Len())
		for i := 0; i < f.Len(); i++ {
			parts = append(parts, formatValue(f.Index(i)))
		}
		return strings.Join(parts, ", ")
	}
	if t, ok := f.Interface().(time.Time); ok {
		return formatTime(t)
	}
	return ""
}
