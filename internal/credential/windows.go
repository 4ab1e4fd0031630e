package credential

import (
	"context"
	"log/slog"
)

// credReadScript reads the Claude Code generic credential out of the
// Windows Credential Manager. CredRead has no CLI equivalent that exposes
// the secret blob, so a small P/Invoke shim is compiled inline.
const credReadScript = `
Add-Type -TypeDefinition @"
using System;
using System.Runtime.InteropServices;
public class CredReader {
    [DllImport("advapi32.dll", CharSet = CharSet.Unicode, SetLastError = true)]
    private static extern bool CredRead(string target, int type, int flags, out IntPtr credPtr);
    [DllImport("advapi32.dll")]
    private static extern void CredFree(IntPtr credPtr);
    [StructLayout(LayoutKind.Sequential, CharSet = CharSet.Unicode)]
    private struct CREDENTIAL {
        public int Flags; public int Type; public string TargetName; public string Comment;
        public long LastWritten; public int CredentialBlobSize; public IntPtr CredentialBlob;
        public int Persist; public int AttributeCount; public IntPtr Attributes;
        public string TargetAlias; public string UserName;
    }
    public static string Read(string target) {
        IntPtr ptr;
        if (!CredRead(target, 1, 0, out ptr)) return "";
        try {
            var cred = (CREDENTIAL)Marshal.PtrToStructure(ptr, typeof(CREDENTIAL));
            return Marshal.PtrToStringUni(cred.CredentialBlob, cred.CredentialBlobSize / 2);
        } finally { CredFree(ptr); }
    }
}
"@
[CredReader]::Read("Claude Code-credentials")
`

// windowsResolver reads the Windows Credential Manager through a PowerShell
// helper, then falls back to credential files.
type windowsResolver struct {
	logger *slog.Logger
	run    runner
}

func (r *windowsResolver) Resolve(ctx context.Context) (string, bool) {
	if token, ok := r.fromCredentialManager(ctx); ok {
		return token, true
	}
	return tokenFromFiles(windowsCredentialPaths(), r.logger)
}

func (r *windowsResolver) fromCredentialManager(ctx context.Context) (string, bool) {
	out, err := r.run(ctx, "powershell", "-NoProfile", "-NonInteractive", "-Command", credReadScript)
	if err != nil {
		r.logger.Debug("credential manager lookup failed", "error", err)
		return "", false
	}
	token, ok := parseCredentialData(out)
	if !ok {
		r.logger.Debug("credential manager entry had no usable token")
		return "", false
	}
	r.logger.Debug("token resolved from Windows Credential Manager")
	return token, true
}
