package cmdutil

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/meza/mod-reconciler/internal/httpclient"
	"github.com/meza/mod-reconciler/internal/i18n"
	"github.com/meza/mod-reconciler/internal/logger"
	"github.com/meza/mod-reconciler/internal/modinstall"
)

// progressQuarters is how many progress lines a file can produce.
const progressQuarters = 4

// DownloadProgress reports each download as debug lines, one per quarter of
// the file. Without --debug nothing is reported.
func DownloadProgress(log *logger.Logger) modinstall.Progress {
	if !log.DebugEnabled() {
		return nil
	}
	return func(fileName string) httpclient.Sender {
		return &progressLine{log: log, file: fileName}
	}
}

// progressLine belongs to a single download, so it needs no locking.
type progressLine struct {
	log     *logger.Logger
	file    string
	quarter int
}

func (p *progressLine) Send(msg tea.Msg) {
	switch msg := msg.(type) {
	case httpclient.ProgressMsg:
		quarter := int(float64(msg) * progressQuarters)
		if quarter > progressQuarters {
			quarter = progressQuarters
		}
		if quarter <= p.quarter {
			return
		}
		p.quarter = quarter
		p.log.Debug(i18n.T("cmd.download.progress", i18n.Tvars{
			Data: &i18n.TData{"file": p.file, "percent": quarter * 100 / progressQuarters},
		}))
	case httpclient.ProgressErrMsg:
		p.log.Debug(i18n.T("cmd.download.failed", i18n.Tvars{
			Data: &i18n.TData{"file": p.file, "err": msg.Err.Error()},
		}))
	}
}
