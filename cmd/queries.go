package cmd

import (
	"fmt"
	"strings"
)

// cannedQuery is a named analytics query over the cleaned table. The {table}
// placeholder is replaced with the configured cleaned table name.
type cannedQuery struct {
	Name  string
	Title string
	SQL   string
}

var cannedQueries = []cannedQuery{
	{"churn-distribution", "Overall Churn Distribution", `
SELECT churn,
       COUNT(*) AS customer_count,
       ROUND(100.0 * COUNT(*) / (SELECT COUNT(*) FROM {table}), 2) AS percentage
FROM {table}
GROUP BY churn
ORDER BY customer_count DESC`},
	{"churn-by-contract", "Churn Rate by Contract Type", `
SELECT contract,
       COUNT(*) AS total_customers,
       SUM(CASE WHEN churn = 'Yes' THEN 1 ELSE 0 END) AS churned_customers,
       ROUND(100.0 * SUM(CASE WHEN churn = 'Yes' THEN 1 ELSE 0 END) / COUNT(*), 2) AS churn_rate
FROM {table}
GROUP BY contract
ORDER BY churn_rate DESC`},
	{"revenue-by-churn", "Revenue Metrics by Churn Status", `
SELECT churn,
       COUNT(*) AS customers,
       ROUND(AVG(monthly_charges), 2) AS avg_monthly_charges,
       ROUND(AVG(total_charges), 2) AS avg_total_charges,
       ROUND(AVG(tenure), 1) AS avg_tenure_months
FROM {table}
GROUP BY churn`},
	{"top-customers", "Top 10 Highest-Paying Customers", `
SELECT customer_id, monthly_charges, total_charges, tenure, contract, churn
FROM {table}
ORDER BY monthly_charges DESC
LIMIT 10`},
	{"churn-by-payment", "Churn Rate by Payment Method", `
SELECT payment_method,
       COUNT(*) AS total,
       SUM(CASE WHEN churn = 'Yes' THEN 1 ELSE 0 END) AS churned,
       ROUND(100.0 * SUM(CASE WHEN churn = 'Yes' THEN 1 ELSE 0 END) / COUNT(*), 2) AS churn_rate
FROM {table}
GROUP BY payment_method
ORDER BY churn_rate DESC`},
	{"internet-service", "Internet Service Performance", `
SELECT internet_service,
       COUNT(*) AS customers,
       ROUND(AVG(monthly_charges), 2) AS avg_revenue,
       ROUND(100.0 * SUM(CASE WHEN churn = 'Yes' THEN 1 ELSE 0 END) / COUNT(*), 2) AS churn_rate
FROM {table}
GROUP BY internet_service
ORDER BY avg_revenue DESC`},
	{"churn-by-tenure", "Churn Rate by Tenure Group", `
SELECT tenure_group, COUNT(*) AS customers,
       ROUND(100.0 * SUM(CASE WHEN churn = 'Yes' THEN 1 ELSE 0 END) / COUNT(*), 2) AS churn_rate
FROM (
  SELECT churn,
         CASE WHEN tenure <= 12 THEN '0-12 months'
              WHEN tenure <= 24 THEN '12-24 months'
              WHEN tenure <= 36 THEN '24-36 months'
              WHEN tenure <= 48 THEN '36-48 months'
              ELSE '48+ months' END AS tenure_group
  FROM {table}
) t
GROUP BY tenure_group
ORDER BY tenure_group`},
	{"senior-citizens", "Senior vs Non-Senior Customer Analysis", `
SELECT CASE senior_citizen WHEN 1 THEN 'Senior' ELSE 'Non-Senior' END AS customer_type,
       COUNT(*) AS total_customers,
       ROUND(100.0 * SUM(CASE WHEN churn = 'Yes' THEN 1 ELSE 0 END) / COUNT(*), 2) AS churn_rate,
       ROUND(AVG(monthly_charges), 2) AS avg_monthly_charges
FROM {table}
GROUP BY senior_citizen`},
	{"regions", "Regional Performance Analysis", `
SELECT region,
       COUNT(*) AS customers,
       ROUND(AVG(monthly_charges), 2) AS avg_revenue,
       ROUND(100.0 * SUM(CASE WHEN churn = 'Yes' THEN 1 ELSE 0 END) / COUNT(*), 2) AS churn_rate
FROM {table}
GROUP BY region
ORDER BY churn_rate DESC`},
	{"support-calls", "Support Calls vs Churn", `
SELECT support_level, COUNT(*) AS customers,
       ROUND(100.0 * SUM(CASE WHEN churn = 'Yes' THEN 1 ELSE 0 END) / COUNT(*), 2) AS churn_rate
FROM (
  SELECT churn,
         CASE WHEN support_calls = 0 THEN '0 calls'
              WHEN support_calls <= 2 THEN '1-2 calls'
              WHEN support_calls <= 5 THEN '3-5 calls'
              ELSE '6+ calls' END AS support_level
  FROM {table}
) t
GROUP BY support_level
ORDER BY churn_rate`},
}

func findQuery(name string) (cannedQuery, error) {
	for _, q := range cannedQueries {
		if q.Name == name {
			return q, nil
		}
	}
	names := make([]string, 0, len(cannedQueries))
	for _, q := range cannedQueries {
		names = append(names, q.Name)
	}
	return cannedQuery{}, fmt.Errorf("unknown query %q (available: %s)", name, strings.Join(names, ", "))
}

func (q cannedQuery) render(table string) string {
	return strings.TrimSpace(strings.ReplaceAll(q.SQL, "{table}", table))
}
