package curseforge

import "time"

type FileReleaseType int

const (
	Release FileReleaseType = 1
	Beta    FileReleaseType = 2
	Alpha   FileReleaseType = 3
)

type FileStatus int

const (
	Processing         FileStatus = 1
	ChangesRequired    FileStatus = 2
	UnderReview        FileStatus = 3
	Approved           FileStatus = 4
	Rejected           FileStatus = 5
	MalwareDetected    FileStatus = 6
	Deleted            FileStatus = 7
	Archived           FileStatus = 8
	Testing            FileStatus = 9
	Released           FileStatus = 10
	ReadyForReview     FileStatus = 11
	Deprecated         FileStatus = 12
	Baking             FileStatus = 13
	AwaitingPublishing FileStatus = 14
	FailedPublishing   FileStatus = 15
)

type FileHashAlgorithm int

const (
	SHA1 FileHashAlgorithm = 1
	MD5  FileHashAlgorithm = 2
)

type FileHash struct {
	Algorithm FileHashAlgorithm `json:"algo"`
	Hash      string            `json:"value"`
}

type File struct {
	ID              int             `json:"id"`
	ProjectID       int             `json:"modId"`
	IsAvailable     bool            `json:"isAvailable"`
	DisplayName     string          `json:"displayName"`
	FileName        string          `json:"fileName"`
	ReleaseType     FileReleaseType `json:"releaseType"`
	FileStatus      FileStatus      `json:"fileStatus"`
	Hashes          []FileHash      `json:"hashes"`
	FileDate        time.Time       `json:"fileDate"`
	FileLength      int             `json:"fileLength"`
	DownloadURL     string          `json:"downloadUrl"`
	GameVersions    []string        `json:"gameVersions"`
	FileFingerprint int             `json:"fileFingerprint"`
	Fingerprint     int             `json:"fingerprint"`
}

// SHA1 returns the reported sha1 digest, or "" when the file carries none.
func (file File) SHA1() string {
	for _, hash := range file.Hashes {
		if hash.Algorithm == SHA1 {
			return hash.Hash
		}
	}
	return ""
}

// IsDownloadable reports whether CurseForge will currently serve the file.
func (file File) IsDownloadable() bool {
	if !file.IsAvailable {
		return false
	}
	return file.FileStatus == Approved || file.FileStatus == Released
}

type Project struct {
	ID           int       `json:"id"`
	GameID       int       `json:"gameId"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	Summary      string    `json:"summary"`
	MainFileID   int       `json:"mainFileId"`
	LatestFiles  []File    `json:"latestFiles"`
	DateModified time.Time `json:"dateModified"`
}

type Pagination struct {
	Cursor      int `json:"index"`
	PageSize    int `json:"pageSize"`
	ResultCount int `json:"resultCount"`
	TotalCount  int `json:"totalCount"`
}

type GameID int

const (
	Minecraft GameID = 432
)

// FingerprintMatch is one project file recognised by its fingerprint.
type FingerprintMatch struct {
	ProjectID   int
	File        File
	LatestFiles []File
}

// FingerprintResult keeps the four partitions the API reports.
type FingerprintResult struct {
	Exact     []FingerprintMatch
	Partial   []FingerprintMatch
	Unmatched []int
	Installed []int
}
