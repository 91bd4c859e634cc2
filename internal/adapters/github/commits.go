package github

import (
	"context"
	"encoding/base64"

	"blogsmith/internal/domain"

	gogithub "github.com/google/go-github/v66/github"
	"golang.org/x/sync/errgroup"
)

const (
	fileMode = "100644"

	// blobConcurrency bounds parallel blob uploads for one commit.
	blobConcurrency = 4
)

// CommitFiles builds one commit on branch out of files via the git data
// API: blobs, then a tree on top of the current tip's tree, then the
// commit, then a fast-forward-only reference update. When the branch has
// no history the commit is a root commit and the reference is created
// instead. An empty file set is a no-op returning the current tip.
func (p *Provider) CommitFiles(ctx context.Context, token, owner, repo, branch string, files []domain.ContentFile, message string) (string, error) {
	client, err := p.client(ctx, token)
	if err != nil {
		return "", &domain.PipelineError{Stage: domain.StageResolveBranch, Kind: domain.KindUnexpected, Err: err}
	}

	parentSHA, baseTreeSHA, err := p.resolveTip(ctx, client, owner, repo, branch)
	if err != nil {
		return "", err
	}

	if len(files) == 0 {
		return parentSHA, nil
	}

	entries, err := p.createBlobs(ctx, client, owner, repo, dedupe(files))
	if err != nil {
		return "", err
	}

	// base_tree carries unspecified paths forward; this is additive, never
	// a full-tree replace.
	tree, resp, err := client.Git.CreateTree(ctx, owner, repo, baseTreeSHA, entries)
	if err != nil {
		return "", wrapErr(domain.StageCreateTree, owner+"/"+repo, resp, err)
	}

	commit := &gogithub.Commit{
		Message: gogithub.String(message),
		Tree:    &gogithub.Tree{SHA: tree.SHA},
	}
	if parentSHA != "" {
		commit.Parents = []*gogithub.Commit{{SHA: gogithub.String(parentSHA)}}
	}

	created, resp, err := client.Git.CreateCommit(ctx, owner, repo, commit, nil)
	if err != nil {
		return "", wrapErr(domain.StageCreateCommit, owner+"/"+repo, resp, err)
	}

	ref := &gogithub.Reference{
		Ref:    gogithub.String("refs/heads/" + branch),
		Object: &gogithub.GitObject{SHA: created.SHA},
	}

	if parentSHA == "" {
		_, resp, err = client.Git.CreateRef(ctx, owner, repo, ref)
	} else {
		// force=false requests a fast-forward-only update; a concurrently
		// moved tip rejects the whole operation.
		_, resp, err = client.Git.UpdateRef(ctx, owner, repo, ref, false)
	}
	if err != nil {
		return "", wrapErr(domain.StageUpdateRef, branch, resp, err)
	}

	p.log.Info("vcs: commit pushed", "repo", owner+"/"+repo, "branch", branch, "sha", created.GetSHA())

	return created.GetSHA(), nil
}

// resolveTip reads the branch tip and its tree. A missing reference means
// an empty branch: root commit, no base tree.
func (p *Provider) resolveTip(ctx context.Context, client *gogithub.Client, owner, repo, branch string) (parentSHA, baseTreeSHA string, err error) {
	ref, resp, err := client.Git.GetRef(ctx, owner, repo, "heads/"+branch)
	if err != nil {
		if notFound(resp) {
			return "", "", nil
		}
		return "", "", wrapErr(domain.StageResolveBranch, branch, resp, err)
	}

	parentSHA = ref.GetObject().GetSHA()

	parent, resp, err := client.Git.GetCommit(ctx, owner, repo, parentSHA)
	if err != nil {
		return "", "", wrapErr(domain.StageResolveBranch, parentSHA, resp, err)
	}

	return parentSHA, parent.GetTree().GetSHA(), nil
}

// createBlobs stores every file as a content-addressed object. Content is
// sent base64-encoded so arbitrary bytes survive the transport.
func (p *Provider) createBlobs(ctx context.Context, client *gogithub.Client, owner, repo string, files []domain.ContentFile) ([]*gogithub.TreeEntry, error) {
	entries := make([]*gogithub.TreeEntry, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(blobConcurrency)

	for i, f := range files {
		g.Go(func() error {
			blob, resp, err := client.Git.CreateBlob(gctx, owner, repo, &gogithub.Blob{
				Content:  gogithub.String(base64.StdEncoding.EncodeToString(f.Content)),
				Encoding: gogithub.String("base64"),
			})
			if err != nil {
				return wrapErr(domain.StageCreateBlob, f.Path, resp, err)
			}

			entries[i] = &gogithub.TreeEntry{
				Path: gogithub.String(f.Path),
				Mode: gogithub.String(fileMode),
				Type: gogithub.String("blob"),
				SHA:  blob.SHA,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return entries, nil
}

// dedupe drops earlier duplicates of a path; the last write wins.
func dedupe(files []domain.ContentFile) []domain.ContentFile {
	last := make(map[string]int, len(files))
	for i, f := range files {
		last[f.Path] = i
	}

	out := make([]domain.ContentFile, 0, len(last))
	for i, f := range files {
		if last[f.Path] == i {
			out = append(out, f)
		}
	}

	return out
}
