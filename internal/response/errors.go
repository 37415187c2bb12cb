package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials    ErrCode = "INVALID_CREDENTIALS"
	ErrTokenRequired         ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid          ErrCode = "TOKEN_INVALID"
	ErrNotSignedIn           ErrCode = "NOT_SIGNED_IN"
	ErrSessionLoading        ErrCode = "SESSION_LOADING"
	ErrAccountNotProvisioned ErrCode = "ACCOUNT_NOT_PROVISIONED"
	ErrReauthRequired        ErrCode = "REAUTH_REQUIRED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden        ErrCode = "FORBIDDEN"
	ErrUnauthorizedRole ErrCode = "UNAUTHORIZED_ROLE"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation      ErrCode = "VALIDATION_ERROR"
	ErrInvalidPayload  ErrCode = "INVALID_PAYLOAD"
	ErrInvalidField    ErrCode = "INVALID_FIELD"
	ErrInvalidStatus   ErrCode = "INVALID_STATUS"
	ErrInvalidSchedule ErrCode = "INVALID_SCHEDULE"
	ErrInvalidRoster   ErrCode = "INVALID_ROSTER"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Provisioning ──────────────────────────────────────────────────
	ErrPartialProvisioning ErrCode = "PARTIAL_PROVISIONING"

	// ─── Media ─────────────────────────────────────────────────────────
	ErrFileRequired    ErrCode = "FILE_REQUIRED"
	ErrUnsupportedFile ErrCode = "UNSUPPORTED_FILE_TYPE"
	ErrFileTooLarge    ErrCode = "FILE_TOO_LARGE"

	// ─── Reports ───────────────────────────────────────────────────────
	ErrReportUnavailable ErrCode = "REPORT_UNAVAILABLE"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrStoreUnavailable ErrCode = "STORE_UNAVAILABLE"
	ErrInternal         ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Email atau kata sandi salah."
	case ErrTokenRequired:
		return "Token autentikasi diperlukan."
	case ErrTokenInvalid:
		return "Token autentikasi tidak valid."
	case ErrNotSignedIn:
		return "Anda belum login. Silakan login terlebih dahulu."
	case ErrSessionLoading:
		return "Sesi Anda sedang dimuat. Silakan coba lagi sebentar."
	case ErrAccountNotProvisioned:
		return "Akun Anda belum terdaftar. Hubungi administrator."
	case ErrReauthRequired:
		return "Konfirmasi kata sandi Anda untuk melanjutkan."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "Anda tidak memiliki izin untuk mengakses sumber daya ini."
	case ErrUnauthorizedRole:
		return "Peran Anda tidak diizinkan membuka halaman ini."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validasi gagal. Silakan periksa masukan Anda."
	case ErrInvalidPayload:
		return "Payload permintaan tidak valid."
	case ErrInvalidField:
		return "Kolom atau nilai tidak valid."
	case ErrInvalidStatus:
		return "Status perizinan tidak valid."
	case ErrInvalidSchedule:
		return "Jadwal tidak valid. Periksa guru piket dan wakil yang dipilih."
	case ErrInvalidRoster:
		return "File data siswa tidak valid."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Sumber daya tidak ditemukan."
	case ErrConflict:
		return "Sumber daya sudah ada."

	// ─── Provisioning ──────────────────────────────────────────────────
	case ErrPartialProvisioning:
		return "Pembuatan akun gagal sebagian. Data sisa akan dibersihkan otomatis."

	// ─── Media ─────────────────────────────────────────────────────────
	case ErrFileRequired:
		return "Unggah file diperlukan."
	case ErrUnsupportedFile:
		return "Jenis file tidak didukung."
	case ErrFileTooLarge:
		return "Ukuran file melebihi batas."

	// ─── Reports ───────────────────────────────────────────────────────
	case ErrReportUnavailable:
		return "Laporan tidak dapat dibuat saat ini."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Terlalu banyak permintaan. Silakan coba lagi nanti."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrStoreUnavailable:
		return "Penyimpanan data sedang tidak tersedia."
	case ErrInternal:
		return "Terjadi kesalahan server internal."
	default:
		return "Terjadi kesalahan yang tidak terduga."
	}
}
