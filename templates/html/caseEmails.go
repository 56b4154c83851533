package templates

import "fmt"

// RenderStaleCaseReminderEmail generates the HTML for the reminder sent to a
// ward official when new cases have sat untouched for several days.
func RenderStaleCaseReminderEmail(officialName, wardID string, staleCount, staleDays int) string {
	return fmt.Sprintf(`<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0 Strict//EN" "http://www.w3.org/TR/xhtml1/DTD/xhtml1-strict.dtd">
<html xmlns="http://www.w3.org/1999/xhtml">
<head>
  <meta http-equiv="Content-Type" content="text/html; charset=utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1, minimum-scale=1, maximum-scale=1">
  <title>Untouched Feedback Cases - OpenWard</title>
  <style type="text/css">
    body { font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; margin: 0; padding: 0; background-color: #f4f5f7; }
    .container { max-width: 600px; margin: 0 auto; background-color: #ffffff; }
    .header { background: linear-gradient(135deg, #2563eb 0%%, #1d4ed8 100%%); padding: 40px 30px; text-align: center; }
    .header h1 { color: #fff; margin: 0; font-size: 24px; font-weight: 700; }
    .content { padding: 40px 30px; color: #374151; }
    .content h2 { color: #111827; margin-top: 0; }
    .highlight-box { background: rgba(37, 99, 235, 0.08); border: 1px solid rgba(37, 99, 235, 0.25); border-radius: 12px; padding: 20px; margin: 20px 0; }
    .highlight-box h3 { color: #1d4ed8; margin-top: 0; font-size: 16px; }
    .footer { padding: 30px; text-align: center; color: #6b7280; font-size: 12px; border-top: 1px solid rgba(0,0,0,0.08); }
  </style>
</head>
<body>
  <div class="container">
    <div class="header">
      <h1>Untouched Feedback Cases</h1>
    </div>
    <div class="content">
      <h2>Hi %s,</h2>
      <p>There are <strong>%d new feedback cases</strong> in ward <strong>%s</strong> that have not been picked up for more than %d days.</p>

      <div class="highlight-box">
        <h3>What to do</h3>
        <p style="margin-bottom: 0;">Review the open queue for your ward and move cases into progress, or merge duplicates so residents see their report is being handled.</p>
      </div>
    </div>
    <div class="footer">
      <p>You are receiving this because you are registered as a ward official.</p>
    </div>
  </div>
</body>
</html>`, officialName, staleCount, wardID, staleDays)
}

// RenderCaseAutoClosedEmail generates the HTML for the notice sent to a ward
// official when a resolved case is closed automatically.
func RenderCaseAutoClosedEmail(officialName, caseID string, resolvedDays int) string {
	return fmt.Sprintf(`<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0 Strict//EN" "http://www.w3.org/TR/xhtml1/DTD/xhtml1-strict.dtd">
<html xmlns="http://www.w3.org/1999/xhtml">
<head>
  <meta http-equiv="Content-Type" content="text/html; charset=utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1, minimum-scale=1, maximum-scale=1">
  <title>Case Closed Automatically - OpenWard</title>
  <style type="text/css">
    body { font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; margin: 0; padding: 0; background-color: #f4f5f7; }
    .container { max-width: 600px; margin: 0 auto; background-color: #ffffff; }
    .header { background: linear-gradient(135deg, #059669 0%%, #047857 100%%); padding: 40px 30px; text-align: center; }
    .header h1 { color: #fff; margin: 0; font-size: 24px; font-weight: 700; }
    .content { padding: 40px 30px; color: #374151; }
    .content h2 { color: #111827; margin-top: 0; }
    .footer { padding: 30px; text-align: center; color: #6b7280; font-size: 12px; border-top: 1px solid rgba(0,0,0,0.08); }
  </style>
</head>
<body>
  <div class="container">
    <div class="header">
      <h1>Case Closed Automatically</h1>
    </div>
    <div class="content">
      <h2>Hi %s,</h2>
      <p>Case <strong>%s</strong> was resolved more than %d days ago with no further activity, so it has been closed automatically.</p>
      <p>The full history, including this closure, remains available in the audit trail.</p>
    </div>
    <div class="footer">
      <p>You are receiving this because you are registered as a ward official.</p>
    </div>
  </div>
</body>
</html>`, officialName, caseID, resolvedDays)
}
