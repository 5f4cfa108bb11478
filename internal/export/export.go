package export

import (
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/folio-scout/harvest-cli/internal/model"
)

// csvHeader mirrors the record schema; list fields are joined with "|" and
// projects flatten to a count.
var csvHeader = []string{
	"id", "username", "display_name", "url", "location", "country",
	"available_for_freelance", "categories", "completed_projects",
	"reviews", "profile_image", "projects",
}

// Write serializes a result into one format under dir, creating the
// directory if needed. It returns the written file's path.
func Write(dir, base string, format Format, result *model.HarvestResult) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrap(err, "export: create output dir")
	}
	path := filepath.Join(dir, base+"."+string(format))

	var err error
	switch format {
	case FormatJSON:
		err = writeJSON(path, result)
	case FormatCSV:
		err = writeCSV(path, result)
	case FormatXML:
		err = writeXML(path, result)
	case FormatXLSX:
		err = writeXLSX(path, result)
	case FormatHTML:
		err = writeHTML(path, result)
	default:
		return "", eris.Wrapf(ErrUnknownFormat, "%q", format)
	}
	if err != nil {
		return "", err
	}

	zap.L().Info("export: wrote file",
		zap.String("format", string(format)),
		zap.String("path", path),
		zap.Int("records", len(result.Records)),
	)
	return path, nil
}

// WriteAll serializes a result into every requested format.
func WriteAll(dir, base string, formats []Format, result *model.HarvestResult) ([]string, error) {
	paths := make([]string, 0, len(formats))
	for _, f := range formats {
		path, err := Write(dir, base, f, result)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeJSON(path string, result *model.HarvestResult) error {
	records := result.Records
	if records == nil {
		records = []model.Record{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return eris.Wrap(err, "export: marshal json")
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return eris.Wrap(err, "export: write json")
	}
	return nil
}

func writeCSV(path string, result *model.HarvestResult) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "export: create csv")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	for _, rec := range result.Records {
		if err := w.Write(csvRow(rec)); err != nil {
			return eris.Wrap(err, "export: write csv row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "export: flush csv")
	}
	return nil
}

func csvRow(rec model.Record) []string {
	return []string{
		strconv.FormatInt(rec.ID, 10),
		rec.Username,
		rec.DisplayName,
		rec.URL,
		rec.Location,
		rec.Country,
		strconv.FormatBool(rec.Available),
		strings.Join(rec.Categories, "|"),
		strconv.Itoa(rec.CompletedProjects),
		strings.Join(rec.Reviews, "|"),
		rec.ProfileImage,
		strconv.Itoa(len(rec.Projects)),
	}
}

type xmlDocument struct {
	XMLName xml.Name       `xml:"freelancers"`
	Keyword string         `xml:"keyword,attr"`
	Records []model.Record `xml:"record"`
}

func writeXML(path string, result *model.HarvestResult) error {
	doc := xmlDocument{Keyword: result.Keyword, Records: result.Records}
	data, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return eris.Wrap(err, "export: marshal xml")
	}
	payload := append([]byte(xml.Header), data...)
	if err := os.WriteFile(path, append(payload, '\n'), 0o644); err != nil {
		return eris.Wrap(err, "export: write xml")
	}
	return nil
}
