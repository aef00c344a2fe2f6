package utils

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Server-side messages only. Keys are stable; the catalogue holds one
// printf-style format per supported locale.

var catalog = map[language.Tag]map[string]string{
	language.English: {
		"health.ok": "ok",

		"request.invalid_json":       "invalid JSON body: %s",
		"request.method_not_allowed": "method not allowed",
		"internal":                   "internal server error",

		"store.unavailable": "service unavailable: the document store is not configured",
		"store.conflict":    "the document was changed by another request, please retry",
		"store.transport":   "failed to reach the document store",
		"store.corrupt":     "stored document %s is not valid JSON",

		"question.required_fields":   "incomplete question data: 'subject', 'id', 'type' and 'question' are required",
		"question.invalid_type":      "question '%s' has unsupported type '%s'",
		"question.invalid_fields":    "question '%s' is missing or has mistyped fields required by type '%s'",
		"question.exists":            "question id '%s' already exists in subject '%s'",
		"question.subject_required":  "property 'subject' is required in the request body",
		"question.subject_not_found": "subject '%s' not found",
		"question.not_found":         "question '%s' not found in subject '%s'",
		"question.deleted":           "question '%s' deleted",
		"question.delete_subject":    "query parameter 'subject' is required to delete a question",

		"bulk.subject_required": "query parameter 'subjectId' is required",
		"bulk.empty":            "request body must be a non-empty JSON array of questions",
		"bulk.invalid":          "invalid question structure or 'subject' mismatch for question id '%s'",
		"bulk.done":             "bulk add finished",
		"bulk.nothing_added":    "no new questions were added: every submitted question already exists",

		"exam.not_found": "subject '%s' not found or has no questions",

		"score.required_fields": "missing parameters: 'userName', 'subjectId', 'score' and 'timeSpent' are required",
		"score.saved":           "score saved",

		"auth.required_fields":      "username and password are required",
		"auth.invalid_credentials":  "invalid credentials",
		"auth.unauthorized":         "unauthorized",
		"auth.not_configured":       "admin login is not configured",
		"auth.signer_not_available": "token signer not configured",
	},
	language.Indonesian: {
		"health.ok": "oke",

		"request.invalid_json":       "body JSON tidak valid: %s",
		"request.method_not_allowed": "metode tidak diizinkan",
		"internal":                   "terjadi kesalahan internal pada server",

		"store.unavailable": "layanan tidak tersedia: konfigurasi server tidak lengkap",
		"store.conflict":    "dokumen telah diubah oleh permintaan lain, silakan coba lagi",
		"store.transport":   "gagal menghubungi penyimpanan dokumen",
		"store.corrupt":     "dokumen %s bukan JSON yang valid",

		"question.required_fields":   "data soal tidak lengkap: 'subject', 'id', 'type', dan 'question' wajib diisi",
		"question.invalid_type":      "soal '%s' memiliki tipe '%s' yang tidak didukung",
		"question.invalid_fields":    "soal '%s' tidak memiliki field yang benar untuk tipe '%s'",
		"question.exists":            "ID soal '%s' sudah ada di mata pelajaran '%s'",
		"question.subject_required":  "properti 'subject' wajib ada di dalam body request",
		"question.subject_not_found": "mata pelajaran '%s' tidak ditemukan",
		"question.not_found":         "soal dengan ID '%s' tidak ditemukan di mata pelajaran '%s'",
		"question.deleted":           "soal dengan ID '%s' berhasil dihapus",
		"question.delete_subject":    "query parameter 'subject' wajib diisi untuk menghapus soal",

		"bulk.subject_required": "query parameter 'subjectId' wajib diisi",
		"bulk.empty":            "body request harus berupa array JSON berisi soal dan tidak boleh kosong",
		"bulk.invalid":          "struktur data soal tidak valid atau 'subject' tidak cocok untuk soal dengan ID: '%s'",
		"bulk.done":             "proses tambah soal massal selesai",
		"bulk.nothing_added":    "tidak ada soal baru yang ditambahkan: semua soal yang dikirim sudah ada",

		"exam.not_found": "mata pelajaran '%s' tidak ditemukan atau tidak memiliki soal",

		"score.required_fields": "parameter tidak lengkap: 'userName', 'subjectId', 'score', dan 'timeSpent' diperlukan",
		"score.saved":           "data skor berhasil disimpan",

		"auth.required_fields":      "username dan password wajib diisi",
		"auth.invalid_credentials":  "kredensial tidak valid",
		"auth.unauthorized":         "tidak terotorisasi",
		"auth.not_configured":       "login admin belum dikonfigurasi",
		"auth.signer_not_available": "penanda token belum dikonfigurasi",
	},
}

func init() {
	for tag, msgs := range catalog {
		for key, msg := range msgs {
			if err := message.SetString(tag, key, msg); err != nil {
				panic(err)
			}
		}
	}
}

// T returns the message for key in locale, formatted with args. Unknown
// locales use English; unknown keys are returned as-is.
func T(locale, key string, args ...any) string {
	tag := tagFor(locale)
	if _, ok := catalog[tag][key]; !ok {
		return key
	}
	return message.NewPrinter(tag).Sprintf(key, args...)
}
