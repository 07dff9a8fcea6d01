package bulk

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/camden-git/mememanager/models"
	"github.com/camden-git/mememanager/repository"
	"github.com/camden-git/mememanager/tags"
	"github.com/camden-git/mememanager/utils"
	"github.com/facette/natsort"
	"gorm.io/gorm"
)

// ErrPrecondition marks an import or export that was refused before any
// mutation because its source or destination was unusable.
var ErrPrecondition = errors.New("precondition failed")

// ImportReport summarizes one import run
type ImportReport struct {
	GroupCount int // distinct groups images were imported into
	ImageCount int // images created
	Failed     int // files skipped because they could not be read or stored
}

// Importer turns files and directories into catalog records
type Importer struct {
	DB *gorm.DB
}

func NewImporter(db *gorm.DB) *Importer {
	return &Importer{DB: db}
}

type importRun struct {
	groups *repository.GroupRepository
	images *repository.ImageRepository
	seen   map[uint]bool
	report *ImportReport
}

// ImportPath imports root, which may be a single file or a directory.
//
// With explicitGroup set, every imported image joins that group (created on
// demand) and subdirectories are ignored. Without it, files directly inside
// root stay ungrouped and each direct subdirectory becomes a group holding
// the files directly inside it. Deeper levels are never visited.
//
// The whole run is one transaction. Unreadable or invalid files are logged,
// counted in Failed and skipped; database errors abort the run.
func (im *Importer) ImportPath(root, explicitGroup string) (ImportReport, error) {
	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return ImportReport{}, fmt.Errorf("%w: %s does not exist", ErrPrecondition, root)
		}
		return ImportReport{}, fmt.Errorf("%w: cannot stat %s: %v", ErrPrecondition, root, err)
	}
	if !info.Mode().IsRegular() && !info.IsDir() {
		return ImportReport{}, fmt.Errorf("%w: %s is neither a regular file nor a directory", ErrPrecondition, root)
	}

	var report ImportReport
	err = im.DB.Transaction(func(tx *gorm.DB) error {
		run := &importRun{
			groups: repository.NewGroupRepository(tx),
			images: repository.NewImageRepository(tx),
			seen:   make(map[uint]bool),
			report: &report,
		}

		if info.Mode().IsRegular() {
			var groupID *uint
			if explicitGroup != "" {
				if groupID, err = run.ensureGroup(explicitGroup); err != nil {
					return err
				}
			}
			return run.importFile(root, groupID)
		}

		if explicitGroup != "" {
			groupID, err := run.ensureGroup(explicitGroup)
			if err != nil {
				return err
			}
			return run.importDir(root, groupID)
		}
		return run.importTree(root)
	})
	if err != nil {
		return ImportReport{}, err
	}

	log.Printf("bulk: imported %d images into %d groups from %s (%d failed)", report.ImageCount, report.GroupCount, root, report.Failed)
	return report, nil
}

func (run *importRun) ensureGroup(name string) (*uint, error) {
	group, created, err := run.groups.Ensure(name)
	if err != nil {
		return nil, err
	}
	if created {
		log.Printf("bulk: created group %q", name)
	}
	if !run.seen[group.ID] {
		run.seen[group.ID] = true
		run.report.GroupCount++
	}
	return &group.ID, nil
}

// importTree handles the two-level layout: loose files plus one group per subdirectory
func (run *importRun) importTree(root string) error {
	files, dirs, err := listEntries(root)
	if err != nil {
		return fmt.Errorf("%w: cannot read directory %s: %v", ErrPrecondition, root, err)
	}

	for _, f := range files {
		if err := run.importFile(f, nil); err != nil {
			return err
		}
	}

	for _, d := range dirs {
		groupID, err := run.ensureGroup(filepath.Base(d))
		if errors.Is(err, repository.ErrInvalidName) {
			log.Printf("bulk: skipping directory %s: %v", d, err)
			run.report.Failed++
			continue
		}
		if err != nil {
			return err
		}
		if err := run.importDir(d, groupID); err != nil {
			return err
		}
	}
	return nil
}

// importDir imports the regular files directly inside dir
func (run *importRun) importDir(dir string, groupID *uint) error {
	files, _, err := listEntries(dir)
	if err != nil {
		log.Printf("bulk: cannot read directory %s: %v", dir, err)
		run.report.Failed++
		return nil
	}
	for _, f := range files {
		if err := run.importFile(f, groupID); err != nil {
			return err
		}
	}
	return nil
}

// importFile stores one file as an image tagged with its stem.
// Only database failures are returned; per-file problems are counted.
func (run *importRun) importFile(path string, groupID *uint) error {
	info, err := os.Stat(path)
	if err != nil {
		log.Printf("bulk: cannot stat %s: %v", path, err)
		run.report.Failed++
		return nil
	}
	if info.Size() > models.MaxImageBytes {
		log.Printf("bulk: skipping %s: %d bytes exceeds the %d byte limit", path, info.Size(), models.MaxImageBytes)
		run.report.Failed++
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("bulk: cannot read %s: %v", path, err)
		run.report.Failed++
		return nil
	}

	stem, ext := utils.SplitFilename(path)
	_, err = run.images.Create(data, ext, []string{stem}, groupID)
	if errors.Is(err, tags.ErrInvalidTag) || errors.Is(err, repository.ErrImageTooLarge) {
		log.Printf("bulk: skipping %s: %v", path, err)
		run.report.Failed++
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to import %s: %w", path, err)
	}

	run.report.ImageCount++
	return nil
}

// listEntries returns the regular files and directories directly inside dir,
// each in natural name order. Symlinks are followed.
func listEntries(dir string) (files, dirs []string, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.SliceStable(names, func(i, j int) bool {
		return natsort.Compare(names[i], names[j])
	})

	for _, name := range names {
		full := filepath.Join(dir, name)
		info, err := os.Stat(full)
		if err != nil {
			log.Printf("bulk: cannot stat %s: %v", full, err)
			continue
		}
		switch {
		case info.Mode().IsRegular():
			files = append(files, full)
		case info.IsDir():
			dirs = append(dirs, full)
		}
	}
	return files, dirs, nil
}
