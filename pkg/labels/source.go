package labels

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/Sternrassler/shopkit/pkg/filter"
	"github.com/Sternrassler/shopkit/pkg/record"
)

// Source supplies the customers for a run.
type Source interface {
	// Mode tells the filter where the birth month is found.
	Mode() filter.Mode

	// Load returns every customer. An error aborts the run.
	Load(ctx context.Context) ([]record.Customer, error)

	// Describe names the source for logs.
	Describe() string
}

// consumer is implemented by sources whose input is used up by a run.
type consumer interface {
	// Consume backs up the input and removes it unless keep is set. It
	// returns the backup path.
	Consume(keep bool) (string, error)
}

// CSVSource reads a point-of-sale CSV export. Birth months come from the
// Birthday column.
type CSVSource struct {
	Path string
}

// Mode implements Source.
func (s CSVSource) Mode() filter.Mode { return filter.ModeBirthday }

// Describe implements Source.
func (s CSVSource) Describe() string { return "csv:" + s.Path }

// Load implements Source.
func (s CSVSource) Load(ctx context.Context) ([]record.Customer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	customers, err := record.ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.Path, err)
	}
	return customers, nil
}

// Consume copies the input to <path>.bak, then removes the input unless keep
// is set, so next month's export does not collide with this one.
func (s CSVSource) Consume(keep bool) (string, error) {
	backup := s.Path + ".bak"
	if err := copyFile(s.Path, backup); err != nil {
		return "", fmt.Errorf("back up input: %w", err)
	}
	if keep {
		return backup, nil
	}
	if err := os.Remove(s.Path); err != nil {
		return backup, fmt.Errorf("remove input: %w", err)
	}
	return backup, nil
}

func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	_, err = io.Copy(out, in)
	return err
}

// Fetcher returns every customer of the shop. *shopapi.Fetcher satisfies it.
type Fetcher interface {
	FetchAll(ctx context.Context) ([]record.Customer, error)
}

// APISource reads customers from the commerce API. Birth months come from
// customer tags.
type APISource struct {
	Fetcher Fetcher
}

// Mode implements Source.
func (s APISource) Mode() filter.Mode { return filter.ModeTag }

// Describe implements Source.
func (s APISource) Describe() string { return "api" }

// Load implements Source.
func (s APISource) Load(ctx context.Context) ([]record.Customer, error) {
	customers, err := s.Fetcher.FetchAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch customers: %w", err)
	}
	return customers, nil
}
