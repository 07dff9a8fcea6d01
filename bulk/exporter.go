package bulk

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/camden-git/mememanager/models"
	"github.com/camden-git/mememanager/repository"
	"github.com/camden-git/mememanager/tags"
	"github.com/camden-git/mememanager/utils"
	"gorm.io/gorm"
)

const maxNameAttempts = 10

// ExportReport summarizes one export run
type ExportReport struct {
	OK     int
	Failed int
}

// Exporter writes catalog images back to files
type Exporter struct {
	DB *gorm.DB

	// NewName generates replacement file name stems for untagged images
	// and name collisions
	NewName func() string
}

func NewExporter(db *gorm.DB) *Exporter {
	return &Exporter{DB: db, NewName: utils.RandomBaseName}
}

// checkDestination verifies destDir exists and is a directory
func checkDestination(destDir string) error {
	info, err := os.Stat(destDir)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: destination %s does not exist", ErrPrecondition, destDir)
		}
		return fmt.Errorf("%w: cannot stat destination %s: %v", ErrPrecondition, destDir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: destination %s is not a directory", ErrPrecondition, destDir)
	}
	return nil
}

// groupDir resolves the directory a group exports into, which must not exist yet
func groupDir(destDir, groupName string) (string, error) {
	if !utils.IsSafeBaseName(groupName) {
		return "", fmt.Errorf("%w: group name %q cannot be used as a directory name", ErrPrecondition, groupName)
	}
	dir := filepath.Join(destDir, groupName)
	if _, err := os.Lstat(dir); err == nil {
		return "", fmt.Errorf("%w: %s already exists", ErrPrecondition, dir)
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("%w: cannot stat %s: %v", ErrPrecondition, dir, err)
	}
	return dir, nil
}

// ExportAll writes every image under destDir: one subdirectory per group,
// ungrouped images directly in destDir. All preconditions are checked before
// anything is written.
func (ex *Exporter) ExportAll(destDir string) (ExportReport, error) {
	if err := checkDestination(destDir); err != nil {
		return ExportReport{}, err
	}

	groups, err := repository.NewGroupRepository(ex.DB).ListAll()
	if err != nil {
		return ExportReport{}, err
	}
	dirs := make([]string, len(groups))
	for i, g := range groups {
		if dirs[i], err = groupDir(destDir, g.Name); err != nil {
			return ExportReport{}, err
		}
	}

	var report ExportReport
	for i := range groups {
		if err := ex.exportGroupInto(&groups[i], dirs[i], &report); err != nil {
			return report, err
		}
	}
	if err := ex.exportImages(nil, destDir, &report); err != nil {
		return report, err
	}

	log.Printf("bulk: exported %d images to %s (%d failed)", report.OK, destDir, report.Failed)
	return report, nil
}

// ExportGroup writes the images of one group into destDir/<groupName>
func (ex *Exporter) ExportGroup(destDir, groupName string) (ExportReport, error) {
	if err := checkDestination(destDir); err != nil {
		return ExportReport{}, err
	}

	group, err := repository.NewGroupRepository(ex.DB).GetByName(groupName)
	if err != nil {
		return ExportReport{}, err
	}
	dir, err := groupDir(destDir, group.Name)
	if err != nil {
		return ExportReport{}, err
	}

	var report ExportReport
	if err := ex.exportGroupInto(group, dir, &report); err != nil {
		return report, err
	}

	log.Printf("bulk: exported %d images of group %q to %s (%d failed)", report.OK, groupName, dir, report.Failed)
	return report, nil
}

func (ex *Exporter) exportGroupInto(group *models.Group, dir string, report *ExportReport) error {
	if err := os.Mkdir(dir, 0755); err != nil {
		log.Printf("bulk: cannot create %s: %v", dir, err)
		// every image of the group counts as a failed write
		return repository.NewImageRepository(ex.DB).EachInGroup(&group.ID, func(*models.Image) error {
			report.Failed++
			return nil
		})
	}
	return ex.exportImages(&group.ID, dir, report)
}

func (ex *Exporter) exportImages(groupID *uint, dir string, report *ExportReport) error {
	return repository.NewImageRepository(ex.DB).EachInGroup(groupID, func(img *models.Image) error {
		path, err := ex.writeImage(dir, img)
		if err != nil {
			log.Printf("bulk: failed to export image %d: %v", img.ID, err)
			report.Failed++
			return nil
		}
		log.Printf("bulk: wrote image %d to %s", img.ID, path)
		report.OK++
		return nil
	})
}

// writeImage creates a new file for img inside dir and never replaces an
// existing one: a taken name is swapped for a fresh random stem
func (ex *Exporter) writeImage(dir string, img *models.Image) (string, error) {
	stem := tags.Primary(img.TagList())
	if !utils.IsSafeBaseName(stem) {
		stem = ex.NewName()
	}

	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		name := utils.JoinFilename(stem, img.ImgType)
		if !utils.IsSafeBaseName(name) {
			return "", fmt.Errorf("unusable file name %q", name)
		}
		path := filepath.Join(dir, name)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if errors.Is(err, fs.ErrExist) {
			stem = ex.NewName()
			continue
		}
		if err != nil {
			return "", err
		}

		_, writeErr := f.Write(img.Data)
		closeErr := f.Close()
		if writeErr == nil {
			writeErr = closeErr
		}
		if writeErr != nil {
			os.Remove(path)
			return "", fmt.Errorf("failed to write %s: %w", path, writeErr)
		}
		return path, nil
	}
	return "", fmt.Errorf("no free file name in %s after %d attempts", dir, maxNameAttempts)
}
