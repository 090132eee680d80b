// Package repository wires the object store, staging index, refs and
// workspace into the add and commit pipeline.
package repository

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"grit/internal/catalog"
	"grit/internal/config"
	"grit/internal/content"
	gerrors "grit/internal/errors"
	"grit/internal/index"
	"grit/internal/object"
	"grit/internal/refs"
	"grit/internal/tree"
	"grit/internal/workspace"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const (
	objectsDir = "objects"
	indexFile  = "index"
	catalogDir = "catalog"
)

// Repository is an opened .grit directory and the workspace around it.
type Repository struct {
	Root      string
	Config    *config.Config
	Workspace *workspace.LocalWorkspace
	Store     *content.FileStore
	Index     *index.Index
	Refs      *refs.Refs
	// Catalog is nil when catalog.enabled is false.
	Catalog *catalog.Catalog
	Logger  *zap.Logger

	now func() time.Time
}

func metaPath(root string, elem ...string) string {
	return filepath.Join(append([]string{root, workspace.MetaDir}, elem...)...)
}

// Initialize creates the repository layout under root. It reports false when
// a repository already existed there; existing state is left untouched.
func Initialize(root string) (bool, error) {
	fs := afero.NewOsFs()

	exists, err := afero.DirExists(fs, metaPath(root))
	if err != nil {
		return false, gerrors.IO("checking repository", err)
	}

	for _, dir := range []string{metaPath(root), metaPath(root, objectsDir)} {
		if err := fs.MkdirAll(dir, 0755); err != nil {
			return false, gerrors.IO(fmt.Sprintf("creating directory %s", dir), err)
		}
	}

	cfgPath := metaPath(root, config.FileName)
	if ok, _ := afero.Exists(fs, cfgPath); !ok {
		if err := config.WriteDefault(fs, cfgPath); err != nil {
			return false, err
		}
	}
	return !exists, nil
}

// Open loads the repository rooted at root.
func Open(root string, logger *zap.Logger) (*Repository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("getting absolute path for root %s: %w", root, err)
	}

	fs := afero.NewOsFs()
	if ok, _ := afero.DirExists(fs, metaPath(absRoot)); !ok {
		return nil, gerrors.NotFound(fmt.Sprintf("no repository at %s", absRoot))
	}

	cfg, err := config.Load(fs, metaPath(absRoot, config.FileName))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	store, err := content.NewFileStore(fs, metaPath(absRoot, objectsDir), content.Options{
		CompressionLevel: cfg.Objects.CompressionLevel,
		CacheSize:        cfg.Objects.CacheSize,
	}, logger.Named("objects"))
	if err != nil {
		return nil, fmt.Errorf("opening object store: %w", err)
	}

	ix, err := index.Load(metaPath(absRoot, indexFile))
	if err != nil {
		return nil, err
	}

	r := &Repository{
		Root:      absRoot,
		Config:    cfg,
		Workspace: workspace.NewLocalWorkspace(fs, absRoot),
		Store:     store,
		Index:     ix,
		Refs:      refs.New(metaPath(absRoot)),
		Logger:    logger,
		now:       time.Now,
	}

	if cfg.Catalog.Enabled {
		r.Catalog, err = catalog.Open(metaPath(absRoot, catalogDir))
		if err != nil {
			return nil, fmt.Errorf("opening catalog: %w", err)
		}
	}
	return r, nil
}

// Close releases the catalog database.
func (r *Repository) Close() error {
	if r == nil || r.Catalog == nil {
		return nil
	}
	if err := r.Catalog.Close(); err != nil {
		return fmt.Errorf("closing catalog: %w", err)
	}
	return nil
}

// Add stores the blobs for every file named by paths and stages them. Paths
// are relative to Root. Nothing is staged if any path fails to resolve.
func (r *Repository) Add(paths []string) ([]string, error) {
	if len(paths) == 0 {
		return nil, gerrors.ValidationError("no paths specified")
	}

	var files []string
	for _, p := range paths {
		matched, err := r.Workspace.ListFiles(p)
		if err != nil {
			return nil, err
		}
		files = append(files, matched...)
	}

	for _, p := range files {
		if err := r.stage(p); err != nil {
			return nil, fmt.Errorf("adding %s: %w", p, err)
		}
	}

	if err := r.Index.Persist(metaPath(r.Root, indexFile)); err != nil {
		return nil, err
	}

	r.Logger.Info("staged files", zap.Int("count", len(files)), zap.Int("tracked", r.Index.Len()))
	return files, nil
}

func (r *Repository) stage(p string) error {
	info, err := r.Workspace.StatFile(p)
	if err != nil {
		return err
	}
	data, err := r.Workspace.ReadFile(p)
	if err != nil {
		return err
	}

	meta := index.NewMetadata(info)
	blob := object.NewBlob(p, data, meta.Executable())
	if err := r.put(blob); err != nil {
		return err
	}
	r.Index.Add(p, blob.ID(), meta)

	r.Logger.Debug("staged file", zap.String("path", p), zap.String("id", blob.ID().String()))
	return nil
}

// put writes obj to the store and catalogs it.
func (r *Repository) put(obj object.Object) error {
	if _, err := r.Store.Put(obj); err != nil {
		return err
	}
	if r.Catalog != nil {
		if _, err := r.Catalog.Record(obj, r.now()); err != nil {
			return fmt.Errorf("cataloging %s: %w", obj.ID(), err)
		}
	}
	return nil
}

// Commit snapshots the staged content. Trees are written children first,
// then the commit, and HEAD moves only after the commit is stored.
func (r *Repository) Commit(message string) (*object.Commit, error) {
	if strings.TrimSpace(message) == "" {
		return nil, gerrors.ValidationError("empty commit message")
	}
	if !strings.HasSuffix(message, "\n") {
		message += "\n"
	}

	blobs, err := r.stagedBlobs()
	if err != nil {
		return nil, err
	}

	root, err := tree.Build(blobs)
	if err != nil {
		return nil, fmt.Errorf("building tree: %w", err)
	}
	for obj := range root.Walk() {
		if err := r.put(obj); err != nil {
			return nil, fmt.Errorf("storing %s %s: %w", obj.Kind(), obj.ID(), err)
		}
	}

	head, ok, err := r.Refs.ReadHead()
	if err != nil {
		return nil, err
	}
	var parent *object.ID
	if ok {
		parent = &head
	}

	commit := object.NewCommit(root.ID(), parent, r.signature(), message)
	if err := r.put(commit); err != nil {
		return nil, fmt.Errorf("storing commit: %w", err)
	}
	if err := r.Refs.UpdateHead(commit.ID()); err != nil {
		return nil, err
	}

	r.Logger.Info("created commit",
		zap.String("id", commit.ID().String()),
		zap.String("tree", root.ID().String()),
		zap.Int("files", len(blobs)))
	return commit, nil
}

// stagedBlobs reads back the content recorded in the index. The executable
// bit comes from the staged mode, not the current workspace file.
func (r *Repository) stagedBlobs() ([]*object.Blob, error) {
	entries := r.Index.Entries()
	blobs := make([]*object.Blob, 0, len(entries))
	for _, e := range entries {
		raw, err := r.Store.Read(e.ID)
		if err != nil {
			return nil, fmt.Errorf("reading staged %s: %w", e.Path, err)
		}
		b, err := object.ParseBlob(e.Path, raw, e.Metadata.Executable())
		if err != nil {
			return nil, fmt.Errorf("reading staged %s: %w", e.Path, err)
		}
		blobs = append(blobs, b)
	}
	return blobs, nil
}

func (r *Repository) signature() object.Signature {
	return object.Signature{
		Name:  r.Config.Author.Name,
		Email: r.Config.Author.Email,
		When:  r.now(),
		Zone:  r.Config.Commit.Timezone,
	}
}

// Log returns up to limit commits starting at HEAD, newest first. A limit of
// zero or less means no limit.
func (r *Repository) Log(limit int) ([]*object.Commit, error) {
	id, ok, err := r.Refs.ReadHead()
	if err != nil || !ok {
		return nil, err
	}

	var commits []*object.Commit
	for {
		raw, err := r.Store.Read(id)
		if err != nil {
			return nil, fmt.Errorf("reading commit %s: %w", id, err)
		}
		c, err := object.ParseCommit(raw)
		if err != nil {
			return nil, fmt.Errorf("reading commit %s: %w", id, err)
		}
		commits = append(commits, c)

		if c.Parent == nil || (limit > 0 && len(commits) >= limit) {
			return commits, nil
		}
		id = *c.Parent
	}
}

// CatFile returns the kind and payload of the object named by rev, which is
// a full id, an unambiguous id prefix, or "HEAD".
func (r *Repository) CatFile(rev string) (object.Kind, []byte, error) {
	id, err := r.Resolve(rev)
	if err != nil {
		return "", nil, err
	}
	raw, err := r.Store.Read(id)
	if err != nil {
		return "", nil, err
	}
	return object.Parse(raw)
}

// Resolve turns a revision into an object id.
func (r *Repository) Resolve(rev string) (object.ID, error) {
	if rev == "HEAD" {
		id, ok, err := r.Refs.ReadHead()
		if err != nil {
			return object.ZeroID, err
		}
		if !ok {
			return object.ZeroID, gerrors.NotFound("HEAD does not point at a commit yet")
		}
		return id, nil
	}

	if id, err := object.ParseID(rev); err == nil {
		return id, nil
	}
	return r.Store.Resolve(rev)
}

// Files returns the staged paths in order.
func (r *Repository) Files() []*index.Entry {
	return r.Index.Entries()
}

func (r *Repository) IsTracked(path string) bool {
	return r.Index.Tracked(path)
}

// Objects lists cataloged objects of the given kind, or all kinds when kind
// is empty.
func (r *Repository) Objects(kind object.Kind) ([]catalog.Meta, error) {
	if r.Catalog == nil {
		return nil, gerrors.ValidationError("object catalog is disabled (catalog.enabled = false)")
	}
	return r.Catalog.List(kind)
}
