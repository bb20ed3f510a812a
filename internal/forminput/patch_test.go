package forminput

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/JamesPrial/todo-engine/internal/todo"
)

func Test_ParsePatch_AbsentFieldsStayNil(t *testing.T) {
	t.Parallel()

	p, err := ParsePatch(strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("ParsePatch() unexpected error: %v", err)
	}
	if !p.Empty() {
		t.Errorf("ParsePatch({}) = %+v, want empty patch", p)
	}
}

func Test_ParsePatch_Fields(t *testing.T) {
	t.Parallel()

	input := `{"title":"new","content":"<i>x</i><script>bad()</script>","completed":true,"priority":"HIGH","category":"Work","tags":["a"],"isPinned":false,"notes":"n","dueDate":"2026-06-01"}`
	p, err := ParsePatch(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParsePatch() unexpected error: %v", err)
	}

	if p.Title == nil || *p.Title != "new" {
		t.Errorf("Title = %v, want new", p.Title)
	}
	if p.Content == nil || *p.Content != "<i>x</i>" {
		t.Errorf("Content = %v, want sanitized <i>x</i>", p.Content)
	}
	if p.Completed == nil || !*p.Completed {
		t.Errorf("Completed = %v, want true", p.Completed)
	}
	if p.Priority == nil || *p.Priority != todo.PriorityHigh {
		t.Errorf("Priority = %v, want high", p.Priority)
	}
	if p.IsPinned == nil || *p.IsPinned {
		t.Errorf("IsPinned = %v, want explicit false", p.IsPinned)
	}
	if p.Tags == nil || len(*p.Tags) != 1 {
		t.Errorf("Tags = %v, want [a]", p.Tags)
	}
	want := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	if p.DueDate == nil || !p.DueDate.Equal(want) || p.ClearDueDate {
		t.Errorf("DueDate = %v (clear %v), want %v", p.DueDate, p.ClearDueDate, want)
	}
}

func Test_ParsePatch_DueDate_Cases(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		input     string
		wantClear bool
		wantSet   bool
		wantErr   bool
	}{
		{name: "absent", input: `{"title":"x"}`},
		{name: "null clears", input: `{"dueDate":null}`, wantClear: true},
		{name: "empty string clears", input: `{"dueDate":""}`, wantClear: true},
		{name: "date sets", input: `{"dueDate":"2026-01-02"}`, wantSet: true},
		{name: "number rejected", input: `{"dueDate":20260102}`, wantErr: true},
		{name: "bad string rejected", input: `{"dueDate":"soon"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p, err := ParsePatch(strings.NewReader(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePatch() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, ErrInvalidForm) {
					t.Errorf("error = %v, want wrapped ErrInvalidForm", err)
				}
				return
			}
			if p.ClearDueDate != tt.wantClear {
				t.Errorf("ClearDueDate = %v, want %v", p.ClearDueDate, tt.wantClear)
			}
			if (p.DueDate != nil) != tt.wantSet {
				t.Errorf("DueDate = %v, wantSet %v", p.DueDate, tt.wantSet)
			}
		})
	}
}

func Test_ParsePatch_Rejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		invalid bool
	}{
		{name: "blank title", input: `{"title":"  "}`, invalid: true},
		{name: "empty priority", input: `{"priority":""}`, invalid: true},
		{name: "unknown priority", input: `{"priority":"urgent"}`, invalid: true},
		{name: "malformed JSON", input: `{"title":`},
		{name: "wrong type", input: `{"completed":"yes"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParsePatch(strings.NewReader(tt.input))
			if err == nil {
				t.Fatal("ParsePatch() expected error, got nil")
			}
			if errors.Is(err, ErrInvalidForm) != tt.invalid {
				t.Errorf("errors.Is(err, ErrInvalidForm) = %v, want %v (err %v)", !tt.invalid, tt.invalid, err)
			}
		})
	}
}
